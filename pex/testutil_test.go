package pex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/form3tech-oss/jwt-go"
	"github.com/stretchr/testify/require"

	"github.com/kokukuma/pex-verifier/claims"
)

// loanCredentials are credentials issued by a third party wallet, EdDSA signed.
type loanCredentials struct {
	Employment string `json:"employment"`
	NameAndDob string `json:"nameAndDob"`
}

func loadLoanCredentials(t *testing.T) loanCredentials {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", "loan_application_credentials.json"))
	require.NoError(t, err)

	var creds loanCredentials
	require.NoError(t, json.Unmarshal(raw, &creds))
	return creds
}

var testSecret = []byte("presentation-exchange-test")

// issue signs an unverified test credential carrying subject.
func issue(t *testing.T, credentialType string, subject map[string]interface{}) string {
	t.Helper()

	c := jwt.MapClaims{
		"iss": "did:example:issuer",
		"sub": "did:example:holder",
		"vc": map[string]interface{}{
			"type":              []interface{}{"VerifiableCredential", credentialType},
			"credentialSubject": subject,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func subjectTree(t *testing.T, subject map[string]interface{}) claims.Value {
	t.Helper()

	v, err := claims.FromInterface(map[string]interface{}{"credentialSubject": subject})
	require.NoError(t, err)
	return v
}

func intPtr(i int) *int { return &i }
func floatPtr(f float64) *float64 { return &f }
