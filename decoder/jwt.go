package decoder

import (
	"fmt"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/form3tech-oss/jwt-go"
	"github.com/mitchellh/mapstructure"
	"github.com/ory/go-convenience/stringslice"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.uber.org/zap"

	"github.com/kokukuma/pex-verifier/claims"
)

var logger = log.New("pex-decoder")

// https://www.w3.org/TR/vc-data-model/#jwt-decoding

const (
	vcClaim = "vc"
)

type envelope struct {
	ID                string      `mapstructure:"id"`
	Types             []string    `mapstructure:"type"`
	Issuer            interface{} `mapstructure:"issuer"`
	IssuanceDate      string      `mapstructure:"issuanceDate"`
	CredentialSubject interface{} `mapstructure:"credentialSubject"`
}

// JWTDecoder decodes compact JWS encoded verifiable credentials (jwt_vc).
// The signature is not checked; verification belongs to the caller.
type JWTDecoder struct {
	parser *jwt.Parser
}

func NewJWTDecoder() *JWTDecoder {
	return &JWTDecoder{parser: &jwt.Parser{}}
}

func (d *JWTDecoder) Decode(token string) (*Credential, error) {
	if strings.Count(token, ".") != 2 {
		return nil, newDecodeError(token, "token is not a compact JWS")
	}

	parsed, _, err := d.parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil && !unverifiable(err) {
		return nil, &DecodeError{Token: token, Err: err}
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, newDecodeError(token, "unexpected claims type %T", parsed.Claims)
	}

	doc, err := normalize(payload)
	if err != nil {
		return nil, &DecodeError{Token: token, Err: err}
	}

	var env envelope
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return nil, &DecodeError{Token: token, Err: err}
	}
	if err := dec.Decode(doc); err != nil {
		return nil, &DecodeError{Token: token, Err: fmt.Errorf("failed to decode credential envelope: %w", err)}
	}

	if !stringslice.Has(env.Types, VerifiableCredentialType) {
		return nil, newDecodeError(token, "type %v does not include %s", env.Types, VerifiableCredentialType)
	}

	subject, err := primarySubject(env.CredentialSubject)
	if err != nil {
		return nil, &DecodeError{Token: token, Err: err}
	}

	tree, err := claims.FromInterface(doc)
	if err != nil {
		return nil, &DecodeError{Token: token, Err: err}
	}

	cred := &Credential{
		Token:        token,
		Claims:       tree,
		ID:           env.ID,
		Types:        env.Types,
		Issuer:       issuerID(env.Issuer),
		IssuanceDate: env.IssuanceDate,
		Subject:      subject,
	}

	logger.Debug("decoded credential", zap.String("id", cred.ID), zap.String("claims", spew.Sdump(doc)))

	return cred, nil
}

// normalize merges the vc claim with the registered JWT claims so paths can be
// written either against the credential ($.credentialSubject) or the JWT ($.vc).
func normalize(payload jwt.MapClaims) (map[string]interface{}, error) {
	vc, ok := payload[vcClaim].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing %q claim", vcClaim)
	}

	doc := make(map[string]interface{}, len(payload)+len(vc))
	for k, v := range payload {
		doc[k] = v
	}
	for k, v := range vc {
		doc[k] = v
	}

	setIfAbsent(doc, "issuer", payload["iss"])
	setIfAbsent(doc, "id", payload["jti"])
	setIfAbsent(doc, "issuanceDate", numericDate(payload["nbf"]))
	setIfAbsent(doc, "expirationDate", numericDate(payload["exp"]))

	if subject, ok := doc["credentialSubject"].(map[string]interface{}); ok {
		copied := make(map[string]interface{}, len(subject)+1)
		for k, v := range subject {
			copied[k] = v
		}
		setIfAbsent(copied, "id", payload["sub"])
		doc["credentialSubject"] = copied
	}

	return doc, nil
}

// unverifiable reports whether the parser only failed to look up the signing
// method. The claims are already decoded at that point, and credentials signed
// with algorithms jwt-go does not ship (EdDSA) are still readable.
func unverifiable(err error) bool {
	ve, ok := err.(*jwt.ValidationError)
	return ok && ve.Errors == jwt.ValidationErrorUnverifiable
}

func setIfAbsent(m map[string]interface{}, key string, value interface{}) {
	if value == nil {
		return
	}
	if s, ok := value.(string); ok && s == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func numericDate(v interface{}) interface{} {
	n, ok := v.(float64)
	if !ok {
		return nil
	}
	return time.Unix(int64(n), 0).UTC().Format(time.RFC3339)
}

func primarySubject(v interface{}) (map[string]interface{}, error) {
	switch s := v.(type) {
	case map[string]interface{}:
		return s, nil
	case []interface{}:
		if len(s) > 0 {
			if first, ok := s[0].(map[string]interface{}); ok {
				return first, nil
			}
		}
	}
	return nil, fmt.Errorf("credentialSubject is missing or malformed")
}

func issuerID(v interface{}) string {
	switch iss := v.(type) {
	case string:
		return iss
	case map[string]interface{}:
		id, _ := iss["id"].(string)
		return id
	}
	return ""
}
