package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storeforge/access-plane/authz"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")

	// ErrInvalidClaimType is returned when a claim has an unexpected type
	ErrInvalidClaimType = errors.New("invalid claim type")
)

// Claims is the JWT claim set carried by access-plane session tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	StoreID string `json:"store_id"`
	Role    string `json:"role"`
}

// ParsedClaims represents parsed and validated claims with typed fields.
type ParsedClaims struct {
	Sub       uuid.UUID
	Email     string
	StoreID   uuid.UUID
	Role      authz.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExtractClaims parses claims from a token string without signature or
// expiry validation. Use only when the token has already been validated.
func ExtractClaims(tokenString string) (*ParsedClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return parseClaims(claims)
}

// parseClaims converts Claims to ParsedClaims with proper type conversions.
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid sub UUID: %w", err)
	}

	if claims.StoreID == "" {
		return nil, fmt.Errorf("%w: store_id", ErrMissingClaim)
	}
	storeID, err := uuid.Parse(claims.StoreID)
	if err != nil {
		return nil, fmt.Errorf("invalid store_id UUID: %w", err)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: role", ErrMissingClaim)
	}

	parsed := &ParsedClaims{
		Sub:     sub,
		Email:   claims.Email,
		StoreID: storeID,
		// An unknown role string is carried through as-is; permission
		// resolution treats it as an empty permission set.
		Role: authz.Role(claims.Role),
	}

	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed, nil
}

// ExtractRole extracts only the role from a token (fast path, no validation).
func ExtractRole(tokenString string) (authz.Role, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	return authz.Role(claims.Role), nil
}
