package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loanDefinitionJSON = `{
  "id": "presDefIdloanAppVerification123",
  "name": "Loan Application Employment Verification",
  "purpose": "To verify applicant's employment, date of birth, and name",
  "input_descriptors": [
    {
      "id": "employmentVerification",
      "purpose": "Confirm current employment status",
      "constraints": {
        "fields": [
          {
            "path": ["$.credentialSubject.employmentStatus"],
            "filter": {"type": "string", "pattern": "employed"}
          }
        ]
      }
    },
    {
      "id": "dobVerification",
      "purpose": "Confirm the applicant's date of birth",
      "constraints": {
        "fields": [
          {
            "path": ["$.credentialSubject.dateOfBirth"],
            "filter": {"type": "string", "format": "date"}
          }
        ]
      }
    },
    {
      "id": "nameVerification",
      "purpose": "Confirm the applicant's legal name",
      "constraints": {
        "fields": [
          {
            "path": ["$.credentialSubject.name"],
            "filter": {"type": "string"}
          }
        ]
      }
    }
  ]
}`

func parseLoanDefinition(t *testing.T) *PresentationDefinition {
	t.Helper()

	var pd PresentationDefinition
	require.NoError(t, json.Unmarshal([]byte(loanDefinitionJSON), &pd))
	return &pd
}

func TestPresentationDefinition_Unmarshal(t *testing.T) {
	pd := parseLoanDefinition(t)

	assert.Equal(t, "presDefIdloanAppVerification123", pd.ID)
	assert.Equal(t, []string{"employmentVerification", "dobVerification", "nameVerification"}, pd.DescriptorIDs())

	fields := pd.InputDescriptors[1].Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, []string{"$.credentialSubject.dateOfBirth"}, fields[0].Path)
	assert.Equal(t, "string", fields[0].Filter.Type)
	assert.Equal(t, "date", fields[0].Filter.Format)

	assert.Nil(t, (&InputDescriptor{ID: "bare"}).Fields())
}

func TestPresentationDefinition_ValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(pd *PresentationDefinition)
		wantErr bool
	}{
		{
			name:   "valid definition",
			modify: func(pd *PresentationDefinition) {},
		},
		{
			name:    "empty id",
			modify:  func(pd *PresentationDefinition) { pd.ID = "" },
			wantErr: true,
		},
		{
			name:    "no input descriptors",
			modify:  func(pd *PresentationDefinition) { pd.InputDescriptors = nil },
			wantErr: true,
		},
		{
			name:    "field without path",
			modify:  func(pd *PresentationDefinition) { pd.InputDescriptors[0].Constraints.Fields[0].Path = nil },
			wantErr: true,
		},
		{
			name:    "unknown filter type",
			modify:  func(pd *PresentationDefinition) { pd.InputDescriptors[2].Constraints.Fields[0].Filter.Type = "text" },
			wantErr: true,
		},
		{
			name: "descriptor without constraints",
			modify: func(pd *PresentationDefinition) {
				pd.InputDescriptors[2].Constraints = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd := parseLoanDefinition(t)
			tt.modify(pd)

			err := pd.ValidateSchema()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.NotEmpty(t, schemaErr.Errors)
		})
	}
}

func TestPresentation_Marshal(t *testing.T) {
	p := &Presentation{
		Context: []string{CredentialsContextV1},
		Type:    []string{VerifiablePresentationType},
		PresentationSubmission: &PresentationSubmission{
			ID:           "sub-1",
			DefinitionID: "def-1",
			DescriptorMap: []*DescriptorMap{
				{ID: "employmentVerification", Format: FormatJWTVC, Path: "$.verifiableCredential[0]"},
			},
		},
		VerifiableCredential: []string{"a.b.c"},
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))

	assert.Equal(t, []interface{}{"VerifiablePresentation"}, generic["type"])
	assert.Contains(t, generic, "presentation_submission")
	assert.NotContains(t, generic, "holder")

	submission := generic["presentation_submission"].(map[string]interface{})
	assert.Equal(t, "def-1", submission["definition_id"])
}

func TestFilter_Keywords(t *testing.T) {
	raw := `{"type":"array","contains":{"const":"EmploymentCredential"},"minItems":2}`

	var f Filter
	require.NoError(t, json.Unmarshal([]byte(raw), &f))

	assert.Equal(t, "array", f.Type)
	assert.Equal(t, map[string]interface{}{
		"contains": map[string]interface{}{"const": "EmploymentCredential"},
		"minItems": float64(2),
	}, f.Keywords)

	out, err := json.Marshal(&f)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))

	out, err = json.Marshal(&Filter{Type: "string"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string"}`, string(out))
}

func TestPresentationDefinition_ValidateSchema_FilterKeywords(t *testing.T) {
	pd := parseLoanDefinition(t)
	pd.InputDescriptors[0].Constraints.Fields[0].Filter = &Filter{
		Type:     "array",
		Keywords: map[string]interface{}{"contains": map[string]interface{}{"const": "EmploymentCredential"}},
	}

	assert.NoError(t, pd.ValidateSchema())
}
