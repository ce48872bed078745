package credential_data

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"
)

type JWKS struct {
	Keys []JWK `json:"keys"`
}

type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Kid string `json:"kid"`
}

// KeyID is the base64url SHA-256 digest of the uncompressed public point.
func KeyID(pub *ecdsa.PublicKey) string {
	digest := sha256.Sum256(elliptic.Marshal(pub.Curve, pub.X, pub.Y))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// JWKS publishes the issuer's signing key so verifiers can check credential signatures.
func (i *Issuer) JWKS() JWKS {
	pub := i.PublicKey()
	return JWKS{
		Keys: []JWK{{
			Kty: "EC",
			Crv: curveName(pub.Curve),
			X:   base64.RawURLEncoding.EncodeToString(pub.X.Bytes()),
			Y:   base64.RawURLEncoding.EncodeToString(pub.Y.Bytes()),
			Alg: "ES256",
			Use: "sig",
			Kid: KeyID(pub),
		}},
	}
}

func curveName(curve elliptic.Curve) string {
	switch curve {
	case elliptic.P256():
		return "P-256"
	case elliptic.P384():
		return "P-384"
	case elliptic.P521():
		return "P-521"
	default:
		return "unknown"
	}
}
