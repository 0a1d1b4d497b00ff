package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type distinguishes access tokens from refresh tokens via the typ claim
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Verification failure kinds. These reach operator logs only; the HTTP
// layer collapses all of them into a single invalid-token response.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadAlgorithm = errors.New("token algorithm not allowed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
	ErrWrongType    = errors.New("token type mismatch")
	ErrMissingClaim = errors.New("token missing required claim")
)

// allowedAlgorithms is the fixed allow-list. Anything else, including
// "none", is rejected before the signature is examined.
var allowedAlgorithms = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Claims is the payload carried by both token types
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	TokenType Type   `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies the token pair. Immutable after construction;
// secret rotation swaps the whole codec.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec creates a Codec. algorithm must be on the allow-list and
// refreshTTL must be at least accessTTL.
func NewCodec(secret, algorithm string, accessTTL, refreshTTL time.Duration, now func() time.Time) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	method, ok := allowedAlgorithms[algorithm]
	if !ok {
		return nil, fmt.Errorf("algorithm %q not allowed", algorithm)
	}
	if accessTTL <= 0 || refreshTTL < accessTTL {
		return nil, fmt.Errorf("invalid TTLs: access=%v refresh=%v", accessTTL, refreshTTL)
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}, nil
}

// AccessTTL returns the access token lifetime
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// IssueAccess signs an access token for the given identity
func (c *Codec) IssueAccess(userID, email, groupID string) (string, error) {
	return c.issue(Claims{
		UserID:    userID,
		Email:     email,
		GroupID:   groupID,
		TokenType: TypeAccess,
	}, c.accessTTL)
}

// IssueRefresh signs a refresh token for the given identity.
// Refresh tokens carry no email claim.
func (c *Codec) IssueRefresh(userID, groupID string) (string, error) {
	return c.issue(Claims{
		UserID:    userID,
		GroupID:   groupID,
		TokenType: TypeRefresh,
	}, c.refreshTTL)
}

func (c *Codec) issue(claims Claims, ttl time.Duration) (string, error) {
	now := c.now()
	claims.Subject = claims.UserID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	tok := jwt.NewWithClaims(c.method, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks tokenString in fixed order: structure, algorithm,
// signature, expiry, typ, sub. The first failure wins.
func (c *Codec) Verify(tokenString string, expected Type) (*Claims, error) {
	segments := strings.Split(tokenString, ".")
	if len(segments) != 3 {
		return nil, ErrMalformed
	}
	for _, seg := range segments {
		if seg == "" {
			return nil, ErrMalformed
		}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrBadAlgorithm
		case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return nil, ErrMissingClaim
		default:
			return nil, ErrMalformed
		}
	}

	// exp == now is expired; the library treats it as valid at the
	// boundary, so re-check with strict inequality.
	if claims.ExpiresAt == nil || !c.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	if claims.TokenType != expected {
		return nil, ErrWrongType
	}
	if claims.Subject == "" || claims.UserID == "" {
		return nil, ErrMissingClaim
	}

	return claims, nil
}
