package pex

import (
	"github.com/kokukuma/pex-verifier/claims"
	"github.com/kokukuma/pex-verifier/decoder"
	"github.com/kokukuma/pex-verifier/document"
)

type descriptorMatcher struct {
	descriptor *document.InputDescriptor
	fields     []*fieldMatcher
}

func newDescriptorMatcher(d *document.InputDescriptor) *descriptorMatcher {
	fields := d.Fields()

	m := &descriptorMatcher{
		descriptor: d,
		fields:     make([]*fieldMatcher, 0, len(fields)),
	}
	for _, f := range fields {
		if f == nil {
			continue
		}
		m.fields = append(m.fields, newFieldMatcher(f))
	}
	return m
}

// satisfiedBy reports whether every non optional field matches. A descriptor
// without fields is satisfied by any credential.
func (m *descriptorMatcher) satisfiedBy(root claims.Value) bool {
	for _, f := range m.fields {
		if _, ok := f.match(root); !ok && !f.field.Optional {
			return false
		}
	}
	return true
}

// Satisfies reports whether the credential satisfies the input descriptor.
func Satisfies(d *document.InputDescriptor, c *decoder.Credential) bool {
	if d == nil || c == nil {
		return false
	}
	return newDescriptorMatcher(d).satisfiedBy(c.Claims)
}

func compileDefinition(pd *document.PresentationDefinition) []*descriptorMatcher {
	matchers := make([]*descriptorMatcher, 0, len(pd.InputDescriptors))
	for _, d := range pd.InputDescriptors {
		if d == nil {
			continue
		}
		matchers = append(matchers, newDescriptorMatcher(d))
	}
	return matchers
}
