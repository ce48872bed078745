package decoder

import (
	"fmt"

	"github.com/kokukuma/pex-verifier/claims"
)

const (
	// VerifiableCredentialType is the base type every credential must carry.
	VerifiableCredentialType = "VerifiableCredential"
)

// Credential is a decoded credential. The decoder owns no reference to it after
// Decode returns and callers must treat it as read-only.
type Credential struct {
	Token        string
	Claims       claims.Value
	ID           string
	Types        []string
	Issuer       string
	IssuanceDate string
	Subject      map[string]interface{}
}

// Decoder turns an encoded credential token into its claims.
type Decoder interface {
	Decode(token string) (*Credential, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(token string) (*Credential, error)

func (f DecoderFunc) Decode(token string) (*Credential, error) {
	return f(token)
}

// DecodeError is returned when a token is malformed or does not describe a
// verifiable credential.
type DecodeError struct {
	Token string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode credential %s: %v", shorten(e.Token), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(token string, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Token: token, Err: fmt.Errorf(format, args...)}
}

func shorten(token string) string {
	const max = 24
	if len(token) <= max {
		return token
	}
	return token[:max] + "..."
}
