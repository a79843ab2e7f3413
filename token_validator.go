package auth

import (
	"fmt"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// SessionClaims is the claim set carried by provider-issued session tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email    string            `json:"email,omitempty"`
	Role     string            `json:"role,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TokenValidator turns a raw session token into a SessionObject without tying
// callers to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*SessionObject, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*SessionObject, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*SessionObject, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// HSTokenValidator validates HS256 tokens minted by the local identity
// provider.
type HSTokenValidator struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewHSTokenValidator creates a validator for locally issued session tokens.
func NewHSTokenValidator(signingKey []byte, issuer string, audience jwt.ClaimStrings, logger Logger) *HSTokenValidator {
	if logger == nil {
		logger = defLogger{}
	}
	return &HSTokenValidator{
		signingKey: signingKey,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// Validate parses and verifies a token string, returning the session it
// encodes.
func (v *HSTokenValidator) Validate(tokenString string) (*SessionObject, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			v.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, parserOptions...)

	return sessionFromToken(tokenString, token, err)
}

// JWKSTokenValidator validates RS256/ES256 tokens issued by a hosted identity
// provider, resolving keys from the provider's JWK Set endpoint.
type JWKSTokenValidator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience jwt.ClaimStrings
	logger   Logger
}

// NewJWKSTokenValidator fetches the provider's JWK Set and keeps it refreshed
// in the background for the lifetime of the validator.
func NewJWKSTokenValidator(jwksURL, issuer string, audience jwt.ClaimStrings, logger Logger) (*JWKSTokenValidator, error) {
	if logger == nil {
		logger = defLogger{}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to fetch JWK set").
			WithMetadata(map[string]any{"jwks_url": jwksURL})
	}

	return &JWKSTokenValidator{
		jwks:     jwks,
		issuer:   issuer,
		audience: audience,
		logger:   logger,
	}, nil
}

// NewGivenKeysTokenValidator builds a JWKS validator from statically
// configured keys instead of a remote endpoint. Useful in tests and for
// providers that publish keys out of band.
func NewGivenKeysTokenValidator(givenKeys map[string]keyfunc.GivenKey, issuer string, audience jwt.ClaimStrings, logger Logger) *JWKSTokenValidator {
	if logger == nil {
		logger = defLogger{}
	}
	return &JWKSTokenValidator{
		jwks:     keyfunc.NewGiven(givenKeys),
		issuer:   issuer,
		audience: audience,
		logger:   logger,
	}
}

// Validate parses and verifies a hosted-provider token string.
func (v *JWKSTokenValidator) Validate(tokenString string) (*SessionObject, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, v.jwks.Keyfunc, parserOptions...)

	return sessionFromToken(tokenString, token, err)
}

// EndBackground stops the validator's JWK Set refresh goroutine.
func (v *JWKSTokenValidator) EndBackground() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func sessionFromToken(tokenString string, token *jwt.Token, err error) (*SessionObject, error) {
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return sessionFromClaims(tokenString, claims), nil
}

func sessionFromClaims(tokenString string, claims *SessionClaims) *SessionObject {
	metadata := map[string]any{}
	for k, v := range claims.Metadata {
		metadata[k] = v
	}
	if claims.Role != "" {
		metadata["role"] = claims.Role
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &SessionObject{
		AccessToken: tokenString,
		ExpiresAt:   expiresAt,
		User: Principal{
			ID:       claims.Subject,
			Email:    claims.Email,
			Metadata: metadata,
		},
	}
}
