package credential_data

import (
	"fmt"
	"sort"

	"github.com/kokukuma/pex-verifier/document"
)

// Subjects holds the claims a holder wants issued, keyed by credential type.
type Subjects map[string]map[string]interface{}

func (s Subjects) AddCredential(credentialType string, claims map[string]interface{}) {
	s[credentialType] = claims
}

// Issue signs one credential per type, ordered by type name.
func (s Subjects) Issue(issuer *Issuer, subjectID string) ([]string, error) {
	var tokens []string
	for _, credentialType := range s.types() {
		token, err := issuer.Issue(credentialType, subjectID, s[credentialType])
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// PresentationDefinition requires every held claim, one input descriptor per
// credential type, with the claim's JSON type as filter.
func (s Subjects) PresentationDefinition(id string) *document.PresentationDefinition {
	pd := &document.PresentationDefinition{ID: id}

	for _, credentialType := range s.types() {
		pd.InputDescriptors = append(pd.InputDescriptors, &document.InputDescriptor{
			ID: credentialType,
			Format: &document.Format{
				JwtVC: &document.JwtType{Alg: []string{"ES256"}},
			},
			Constraints: &document.Constraints{
				Fields: formatPathFields(s[credentialType]),
			},
		})
	}
	return pd
}

func formatPathFields(claims map[string]interface{}) []*document.Field {
	names := make([]string, 0, len(claims))
	for name := range claims {
		names = append(names, name)
	}
	sort.Strings(names)

	result := []*document.Field{}
	for _, name := range names {
		result = append(result, &document.Field{
			Path: []string{
				fmt.Sprintf("$.credentialSubject['%s']", name),
				fmt.Sprintf("$.vc.credentialSubject['%s']", name),
			},
			Filter: &document.Filter{Type: jsonType(claims[name])},
		})
	}
	return result
}

func (s Subjects) types() []string {
	types := make([]string, 0, len(s))
	for t := range s {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64:
		return "number"
	case []interface{}, []string:
		return "array"
	case map[string]interface{}:
		return "object"
	}
	return ""
}
