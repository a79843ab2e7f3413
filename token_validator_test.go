package auth_test

import (
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	auth "github.com/mercatohq/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

func mintTestToken(t *testing.T, key []byte, kid string, mutate func(*auth.SessionClaims)) string {
	t.Helper()

	claims := &auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mercato",
			Subject:   "usr-1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "ada@example.com",
		Role:  "seller",
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}

	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestHSValidatorRoundTrip(t *testing.T) {
	validator := auth.NewHSTokenValidator(testSigningKey, "mercato", nil, nil)

	raw := mintTestToken(t, testSigningKey, "", nil)

	session, err := validator.Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, raw, session.AccessToken)
	assert.Equal(t, "usr-1", session.User.ID)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, "seller", session.User.Metadata["role"])
	assert.False(t, session.ExpiredAt(time.Now()))
}

func TestHSValidatorRejectsExpiredToken(t *testing.T) {
	validator := auth.NewHSTokenValidator(testSigningKey, "", nil, nil)

	raw := mintTestToken(t, testSigningKey, "", func(c *auth.SessionClaims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	})

	_, err := validator.Validate(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestHSValidatorRejectsWrongKey(t *testing.T) {
	validator := auth.NewHSTokenValidator(testSigningKey, "", nil, nil)

	raw := mintTestToken(t, []byte("some-other-key"), "", nil)

	_, err := validator.Validate(raw)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, auth.ErrTokenMalformed.TextCode, richErr.TextCode)
}

func TestHSValidatorRejectsWrongIssuer(t *testing.T) {
	validator := auth.NewHSTokenValidator(testSigningKey, "mercato", nil, nil)

	raw := mintTestToken(t, testSigningKey, "", func(c *auth.SessionClaims) {
		c.Issuer = "someone-else"
	})

	_, err := validator.Validate(raw)
	assert.Error(t, err)
}

func TestHSValidatorRejectsGarbage(t *testing.T) {
	validator := auth.NewHSTokenValidator(testSigningKey, "", nil, nil)

	_, err := validator.Validate("not-a-token")
	assert.Error(t, err)
}

func TestGivenKeysValidatorRoundTrip(t *testing.T) {
	givenKeys := map[string]keyfunc.GivenKey{
		"kid-1": keyfunc.NewGivenCustom(testSigningKey, keyfunc.GivenKeyOptions{
			Algorithm: "HS256",
		}),
	}

	validator := auth.NewGivenKeysTokenValidator(givenKeys, "mercato", nil, nil)

	raw := mintTestToken(t, testSigningKey, "kid-1", nil)

	session, err := validator.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", session.User.ID)
}

func TestGivenKeysValidatorRejectsUnknownKid(t *testing.T) {
	givenKeys := map[string]keyfunc.GivenKey{
		"kid-1": keyfunc.NewGivenCustom(testSigningKey, keyfunc.GivenKeyOptions{
			Algorithm: "HS256",
		}),
	}

	validator := auth.NewGivenKeysTokenValidator(givenKeys, "", nil, nil)

	raw := mintTestToken(t, testSigningKey, "kid-2", nil)

	_, err := validator.Validate(raw)
	assert.Error(t, err)
}

func TestValidatorFuncNilIsMalformed(t *testing.T) {
	var fn auth.TokenValidatorFunc
	_, err := fn.Validate("anything")
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}
