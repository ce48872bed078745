package decoder

import (
	"testing"

	"github.com/form3tech-oss/jwt-go"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("presentation-exchange-test")

func signClaims(t *testing.T, c jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(testSecret)
	require.NoError(t, err)
	return token
}
