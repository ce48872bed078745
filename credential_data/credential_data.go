package credential_data

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"

	"github.com/kokukuma/pex-verifier/decoder"
)

// https://www.w3.org/TR/vc-data-model/#jwt-encoding

const (
	EmploymentCredential = "EmploymentCredential"
	NameAndDobCredential = "NameAndDobCredential"

	credentialsContextV1 = "https://www.w3.org/2018/credentials/v1"
)

// vcClaims is the payload of a jwt_vc: the registered claims plus the credential
// under "vc".
type vcClaims struct {
	VC map[string]interface{} `json:"vc"`
	jwt.StandardClaims
}

// Issuer signs sample verifiable credentials. It is used by the demo script and
// tests; it is not a production issuer.
type Issuer struct {
	DID string
	key *ecdsa.PrivateKey
	now func() time.Time
}

type IssuerOption func(*Issuer)

func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(did string, opts ...IssuerOption) (*Issuer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate issuer key: %w", err)
	}

	i := &Issuer{DID: did, key: key, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) PublicKey() *ecdsa.PublicKey {
	return &i.key.PublicKey
}

// Issue signs a credential of the given type about subjectID with ES256.
func (i *Issuer) Issue(credentialType, subjectID string, subject map[string]interface{}) (string, error) {
	id := "urn:uuid:" + uuid.NewString()
	issuedAt := i.now().UTC()

	credentialSubject := make(map[string]interface{}, len(subject)+1)
	for k, v := range subject {
		credentialSubject[k] = v
	}
	credentialSubject["id"] = subjectID

	c := &vcClaims{
		VC: map[string]interface{}{
			"@context":          []string{credentialsContextV1},
			"type":              []string{decoder.VerifiableCredentialType, credentialType},
			"id":                id,
			"issuer":            i.DID,
			"issuanceDate":      issuedAt.Format(time.RFC3339),
			"credentialSubject": credentialSubject,
		},
		StandardClaims: jwt.StandardClaims{
			Issuer:    i.DID,
			Subject:   subjectID,
			Id:        id,
			NotBefore: issuedAt.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, c)
	token.Header["typ"] = "JWT"
	token.Header["kid"] = i.DID + "#" + KeyID(i.PublicKey())

	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", credentialType, err)
	}
	return signed, nil
}
