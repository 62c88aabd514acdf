// Package token encodes and decodes the signed bearer tokens used by the
// auth service. Access tokens are self-contained and never checked against
// storage; refresh tokens carry a jti that correlates them to a persisted,
// revocable session record, because signature validity alone cannot prove a
// refresh token is still live.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/pkg/config"
)

// Audience values restrict a token to exactly one use.
const (
	AudienceAccess  = "access"
	AudienceRefresh = "refresh"
	AudienceVerify  = "verify"
)

// Codec failure kinds. Callers translate these into the auth error taxonomy
// and must not leak anything more specific.
var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Claims is the payload carried by every token this service signs.
type Claims struct {
	Role models.EmployeeRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a process-wide symmetric secret.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	algorithm  string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	verifyTTL  time.Duration
}

// NewCodec builds a codec from the JWT configuration. An empty secret or an
// unknown algorithm is a construction error; main treats it as fatal.
func NewCodec(cfg config.JWTConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: signing secret is required")
	}

	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("token: unsupported signing algorithm %q", cfg.Algorithm)
	}

	return &Codec{
		secret:     []byte(cfg.Secret),
		method:     method,
		algorithm:  method.Alg(),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		verifyTTL:  cfg.VerifyTokenTTL,
	}, nil
}

// AccessTTL exposes the access token lifetime for expires_in responses.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssueAccess mints a short-lived access token embedding the employee role.
func (c *Codec) IssueAccess(employeeID string, role models.EmployeeRole) (string, error) {
	return c.sign(employeeID, role, AudienceAccess, c.accessTTL)
}

// IssueRefresh mints a long-lived refresh token. The generated jti is the
// primary key of the session record persisted by the caller.
func (c *Codec) IssueRefresh(employeeID string) (string, error) {
	return c.sign(employeeID, "", AudienceRefresh, c.refreshTTL)
}

// IssueVerification mints the token embedded in verification emails.
func (c *Codec) IssueVerification(employeeID string) (string, error) {
	return c.sign(employeeID, "", AudienceVerify, c.verifyTTL)
}

func (c *Codec) sign(employeeID string, role models.EmployeeRole, audience string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeID,
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Decode verifies signature, issuer, audience and expiry, returning the
// claims on success. Failures collapse to ErrExpired or ErrInvalid only.
func (c *Codec) Decode(tokenString, expectedAudience string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.algorithm {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(expectedAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
