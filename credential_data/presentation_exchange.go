package credential_data

import (
	"github.com/kokukuma/pex-verifier/document"
)

const (
	LoanApplicationDefinitionID = "presDefIdloanAppVerification123"

	EmploymentVerification = "employmentVerification"
	DobVerification        = "dobVerification"
	NameVerification       = "nameVerification"
)

// LoanApplicationDefinition asks for proof of employment, date of birth and name.
// Every call returns a fresh definition the caller may modify.
func LoanApplicationDefinition() *document.PresentationDefinition {
	return &document.PresentationDefinition{
		ID:      LoanApplicationDefinitionID,
		Name:    "Loan Application Employment Verification",
		Purpose: "To verify applicant’s employment, date of birth, and name",
		InputDescriptors: []*document.InputDescriptor{
			{
				ID:      EmploymentVerification,
				Purpose: "Confirm current employment status",
				Constraints: &document.Constraints{
					Fields: []*document.Field{
						{
							Path:   []string{"$.credentialSubject.employmentStatus"},
							Filter: &document.Filter{Type: "string", Pattern: "employed"},
						},
					},
				},
			},
			{
				ID:      DobVerification,
				Purpose: "Confirm the applicant’s date of birth",
				Constraints: &document.Constraints{
					Fields: []*document.Field{
						{
							Path:   []string{"$.credentialSubject.dateOfBirth"},
							Filter: &document.Filter{Type: "string", Format: "date"},
						},
					},
				},
			},
			{
				ID:      NameVerification,
				Purpose: "Confirm the applicant’s legal name",
				Constraints: &document.Constraints{
					Fields: []*document.Field{
						{
							Path:   []string{"$.credentialSubject.name"},
							Filter: &document.Filter{Type: "string"},
						},
					},
				},
			},
		},
	}
}

// LoanApplicationSubjects holds an applicant's employment status and identity
// claims, satisfying LoanApplicationDefinition once issued.
func LoanApplicationSubjects() Subjects {
	s := Subjects{}
	s.AddCredential(EmploymentCredential, map[string]interface{}{
		"employmentStatus": "employed",
	})
	s.AddCredential(NameAndDobCredential, map[string]interface{}{
		"name":        "alice bob",
		"dateOfBirth": "1990-01-10",
	})
	return s
}
