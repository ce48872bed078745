package document

import "encoding/json"

// https://identity.foundation/presentation-exchange/spec/v2.0.0/

const (
	// VerifiablePresentationType is the base type of every presentation.
	VerifiablePresentationType = "VerifiablePresentation"
	// CredentialsContextV1 is the base JSON-LD context of presentations.
	CredentialsContextV1 = "https://www.w3.org/2018/credentials/v1"

	// FormatJWTVC is the claim format designation of JWT encoded credentials.
	FormatJWTVC = "jwt_vc"
)

type PresentationDefinition struct {
	ID               string             `json:"id"`
	Name             string             `json:"name,omitempty"`
	Purpose          string             `json:"purpose,omitempty"`
	Format           *Format            `json:"format,omitempty"`
	InputDescriptors []*InputDescriptor `json:"input_descriptors"`
}

// DescriptorIDs returns the input descriptor ids in definition order.
func (pd *PresentationDefinition) DescriptorIDs() []string {
	ids := make([]string, 0, len(pd.InputDescriptors))
	for _, d := range pd.InputDescriptors {
		if d != nil {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

type InputDescriptor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Purpose     string       `json:"purpose,omitempty"`
	Format      *Format      `json:"format,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
}

// Fields returns the constraint fields, or nil when the descriptor has no constraints.
func (d *InputDescriptor) Fields() []*Field {
	if d.Constraints == nil {
		return nil
	}
	return d.Constraints.Fields
}

type Constraints struct {
	LimitDisclosure string   `json:"limit_disclosure,omitempty"` // "required" or "preferred"
	Fields          []*Field `json:"fields,omitempty"`
}

type Format struct {
	JwtVC     *JwtType `json:"jwt_vc,omitempty"`
	JwtVCJSON *JwtType `json:"jwt_vc_json,omitempty"`
	JwtVP     *JwtType `json:"jwt_vp,omitempty"`
}

type JwtType struct {
	Alg []string `json:"alg,omitempty"`
}

type Field struct {
	ID       string   `json:"id,omitempty"`
	Path     []string `json:"path"`
	Purpose  string   `json:"purpose,omitempty"`
	Name     string   `json:"name,omitempty"`
	Optional bool     `json:"optional,omitempty"`
	Filter   *Filter  `json:"filter,omitempty"`
}

// Filter is the JSON Schema subset applied to the value a field path resolves to.
type Filter struct {
	Type             string                 `json:"type,omitempty"`
	Format           string                 `json:"format,omitempty"`
	Pattern          string                 `json:"pattern,omitempty"`
	Enum             []interface{}          `json:"enum,omitempty"`
	Const            interface{}            `json:"const,omitempty"`
	MinLength        *int                   `json:"minLength,omitempty"`
	MaxLength        *int                   `json:"maxLength,omitempty"`
	Minimum          *float64               `json:"minimum,omitempty"`
	Maximum          *float64               `json:"maximum,omitempty"`
	ExclusiveMinimum *float64               `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64               `json:"exclusiveMaximum,omitempty"`
	Not              map[string]interface{} `json:"not,omitempty"`

	// Keywords holds the remaining JSON schema keywords of the filter, such as
	// contains, items or minItems. They are enforced like the fields above.
	Keywords map[string]interface{} `json:"-"`
}

var filterFieldKeys = []string{
	"type", "format", "pattern", "enum", "const", "minLength", "maxLength",
	"minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "not",
}

type filterFields Filter

func (f Filter) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(filterFields(f))
	if err != nil || len(f.Keywords) == 0 {
		return raw, err
	}

	merged := make(map[string]interface{})
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for k, v := range f.Keywords {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	var known filterFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range filterFieldKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		known.Keywords = all
	}

	*f = Filter(known)
	return nil
}

// PresentationSubmission describes which credentials of a presentation satisfy
// which input descriptors.
type PresentationSubmission struct {
	ID            string           `json:"id"`
	DefinitionID  string           `json:"definition_id"`
	DescriptorMap []*DescriptorMap `json:"descriptor_map"`
}

// DescriptorMap maps an input descriptor to the credential selected by Path.
type DescriptorMap struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	Path   string `json:"path"`
}

type Presentation struct {
	Context                []string                `json:"@context"`
	Type                   []string                `json:"type"`
	Holder                 string                  `json:"holder,omitempty"`
	PresentationSubmission *PresentationSubmission `json:"presentation_submission"`
	VerifiableCredential   []string                `json:"verifiableCredential"`
}
