package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/pkg/errcode"
)

// Claims represents JWT claims issued by the identity service.
// Tokens that omit user_id fall back to the registered subject.
type Claims struct {
	UserId string `json:"user_id,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AccountId returns the account the token was issued to
func (c *Claims) AccountId() string {
	if c.UserId != "" {
		return c.UserId
	}
	return c.Subject
}

// GenerateToken generates a new JWT token
func GenerateToken(userId string, role common.RoleType, secret, issuer string, expireHours int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserId: userId,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken parses and validates a JWT token.
// issuer may be empty to skip the issuer check.
func ParseToken(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errcode.ErrTokenExpired
		}
		return nil, errcode.ErrTokenInvalid.Wrap(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountId() == "" {
		return nil, errcode.ErrTokenInvalid
	}

	return claims, nil
}

// TokenId returns a stable identifier for revocation bookkeeping
func (c *Claims) TokenId() string {
	if c.ID != "" {
		return c.ID
	}
	issued := int64(0)
	if c.IssuedAt != nil {
		issued = c.IssuedAt.Unix()
	}
	return c.AccountId() + ":" + time.Unix(issued, 0).UTC().Format("20060102T150405")
}

// TTL returns how long the token remains valid from now
func (c *Claims) TTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	ttl := time.Until(c.ExpiresAt.Time)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Verifier checks bearer tokens against one secret and issuer
type Verifier struct {
	Secret string
	Issuer string
}

// NewVerifier creates a new Verifier
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{Secret: secret, Issuer: issuer}
}

// Verify parses tokenString and returns its claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errcode.ErrTokenMissing
	}
	return ParseToken(tokenString, v.Secret, v.Issuer)
}

// BearerPrefix prefixes the token in an Authorization header
const BearerPrefix = "Bearer "

// FromAuthorizationHeader extracts the token from an "Authorization: Bearer <token>" value.
// It returns "" when the header is empty or uses another scheme.
func FromAuthorizationHeader(header string) string {
	if len(header) <= len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(BearerPrefix):])
}
