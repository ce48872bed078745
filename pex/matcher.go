package pex

import (
	"fmt"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/kokukuma/pex-verifier/claims"
	"github.com/kokukuma/pex-verifier/document"
)

// Dates are accepted as RFC 3339 full-date or as month-day-year, which some
// wallets still issue for dateOfBirth.
var dateLayouts = []string{"2006-01-02", "01-02-2006"}

type dateFormatChecker struct{}

func (dateFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func init() {
	gojsonschema.FormatCheckers.Add("date", dateFormatChecker{})
}

// fieldMatcher is a field with its filter compiled to a JSON schema.
type fieldMatcher struct {
	field  *document.Field
	schema *gojsonschema.Schema
	// broken is set when the filter could not be compiled; such a field never matches.
	broken bool
}

func compileFilter(f *document.Filter) (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter: %w", err)
	}
	return schema, nil
}

func newFieldMatcher(f *document.Field) *fieldMatcher {
	m := &fieldMatcher{field: f}
	if f.Filter == nil {
		return m
	}

	schema, err := compileFilter(f.Filter)
	if err != nil {
		logger.Warn("field filter is not a valid JSON schema, field will never match",
			zap.Strings("path", f.Path), log.WithError(err))
		m.broken = true
		return m
	}
	m.schema = schema
	return m
}

// match resolves the field paths in order; the first path that resolves is
// tested against the filter.
func (m *fieldMatcher) match(root claims.Value) (claims.Value, bool) {
	if m.broken {
		return claims.Value{}, false
	}

	for _, path := range m.field.Path {
		v, ok := claims.Resolve(root, path)
		if !ok {
			continue
		}

		if m.schema == nil {
			return v, true
		}

		result, err := m.schema.Validate(gojsonschema.NewGoLoader(v.Interface()))
		if err != nil || !result.Valid() {
			return claims.Value{}, false
		}
		return v, true
	}

	return claims.Value{}, false
}

// MatchField evaluates a single field against a claims tree. On success it
// returns the value the field path resolved to.
func MatchField(root claims.Value, f *document.Field) (claims.Value, bool) {
	if f == nil {
		return claims.Value{}, false
	}
	return newFieldMatcher(f).match(root)
}
