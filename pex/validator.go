package pex

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/samber/lo"

	"github.com/kokukuma/pex-verifier/claims"
	"github.com/kokukuma/pex-verifier/document"
)

type Status string

const (
	StatusInfo  Status = "info"
	StatusWarn  Status = "warn"
	StatusError Status = "error"

	rootTag = "root"
)

// Checkmark is one finding of a validation report.
type Checkmark struct {
	Tag     string `json:"tag"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

var credentialPathPattern = regexp.MustCompile(`^\$(\.verifiableCredential|\['verifiableCredential'\])\[\d+\]$`)

type report struct {
	findings []Checkmark
}

func (r *report) errorf(format string, args ...interface{}) {
	r.findings = append(r.findings, Checkmark{Tag: rootTag, Status: StatusError, Message: fmt.Sprintf(format, args...)})
}

func (r *report) warnf(format string, args ...interface{}) {
	r.findings = append(r.findings, Checkmark{Tag: rootTag, Status: StatusWarn, Message: fmt.Sprintf(format, args...)})
}

// checkmarks returns the root entry {root, info, ok} followed by the findings.
func (r *report) checkmarks() []Checkmark {
	return append([]Checkmark{{Tag: rootTag, Status: StatusInfo, Message: "ok"}}, r.findings...)
}

// HasErrors reports whether a validation report carries an error finding.
func HasErrors(checks []Checkmark) bool {
	return lo.ContainsBy(checks, func(c Checkmark) bool { return c.Status == StatusError })
}

// ValidateSubmission checks the structure of a presentation submission. It never
// fails: the first checkmark is always {root, info, ok} and every violation is
// appended after it. A valid submission yields that single entry.
func ValidateSubmission(sub *document.PresentationSubmission) []Checkmark {
	r := &report{}

	if sub == nil {
		r.errorf("presentation submission is missing")
		return r.checkmarks()
	}

	if sub.ID == "" {
		r.errorf("id must be a non-empty string")
	}
	if sub.DefinitionID == "" {
		r.errorf("definition_id must be a non-empty string")
	}

	switch {
	case sub.DescriptorMap == nil:
		r.errorf("descriptor_map must be an array")
	case len(sub.DescriptorMap) == 0:
		r.warnf("descriptor_map is empty")
	}

	seen := make(map[string]bool)
	for i, m := range sub.DescriptorMap {
		if m == nil {
			r.errorf("descriptor_map[%d] must be an object", i)
			continue
		}

		if m.ID == "" {
			r.errorf("descriptor_map[%d].id must be a non-empty string", i)
		} else if seen[m.ID] {
			r.warnf("descriptor_map[%d].id %q is mapped more than once", i, m.ID)
		}
		seen[m.ID] = true

		if m.Format == "" {
			r.errorf("descriptor_map[%d].format must be a non-empty string", i)
		}

		switch {
		case m.Path == "":
			r.errorf("descriptor_map[%d].path must be a non-empty string", i)
		case claims.ValidatePath(m.Path) != nil:
			r.errorf("descriptor_map[%d].path %q is not a valid JSONPath expression", i, m.Path)
		case !credentialPathPattern.MatchString(m.Path):
			r.errorf("descriptor_map[%d].path %q must select an element of $.verifiableCredential", i, m.Path)
		}
	}

	return r.checkmarks()
}

// ValidateDefinition checks a presentation definition against the definition
// JSON schema and the constraints the schema cannot express.
func ValidateDefinition(pd *document.PresentationDefinition) []Checkmark {
	r := &report{}

	if pd == nil {
		r.errorf("presentation definition is missing")
		return r.checkmarks()
	}

	if err := pd.ValidateSchema(); err != nil {
		var schemaErr *document.SchemaError
		if errors.As(err, &schemaErr) {
			for _, msg := range schemaErr.Errors {
				r.errorf("%s", msg)
			}
		} else {
			r.errorf("%v", err)
		}
	}

	seen := make(map[string]bool)
	for i, d := range pd.InputDescriptors {
		if d == nil {
			continue
		}

		if d.ID != "" && seen[d.ID] {
			r.errorf("input_descriptors[%d].id %q is not unique", i, d.ID)
		}
		seen[d.ID] = true

		if len(d.Fields()) == 0 {
			r.warnf("input_descriptors[%d] has no constraint fields and matches any credential", i)
		}

		for j, f := range d.Fields() {
			if f == nil {
				continue
			}
			for k, path := range f.Path {
				if err := claims.ValidatePath(path); err != nil {
					r.errorf("input_descriptors[%d].constraints.fields[%d].path[%d]: %v", i, j, k, err)
				}
			}
			if f.Filter != nil {
				if _, err := compileFilter(f.Filter); err != nil {
					r.errorf("input_descriptors[%d].constraints.fields[%d].filter: %v", i, j, err)
				}
			}
		}
	}

	return r.checkmarks()
}
