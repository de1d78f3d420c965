package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

var signingMethod = jwt.SigningMethodHS256

// AccessTokenPayload is what an issuer supplies when minting a token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.Role
	VendorID *uuid.UUID
	JTI      string
}

// AccessTokenClaims are carried by every API bearer token. Vendor tokens
// must name the vendor they act for; admin and system tokens may omit it.
type AccessTokenClaims struct {
	UserID   uuid.UUID  `json:"user_id"`
	Role     enums.Role `json:"role"`
	VendorID *uuid.UUID `json:"vendor_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks during parsing and before
// signing when minting.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errors.New("token has no user id")
	case !c.Role.IsValid():
		return fmt.Errorf("token has unknown role %q", c.Role)
	case c.Role == enums.RoleVendor && (c.VendorID == nil || *c.VendorID == uuid.Nil):
		return errors.New("vendor token has no vendor id")
	}
	return nil
}

func checkConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" || cfg.Issuer == "" {
		return errors.New("jwt secret and issuer are required")
	}
	return nil
}

// MintAccessToken signs a token valid from now for cfg.ExpirationMinutes.
// A random JTI is assigned when the payload has none.
func MintAccessToken(cfg config.JWTConfig, now time.Time, p AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration must be positive, got %d minutes", cfg.ExpirationMinutes)
	}
	if p.JTI == "" {
		p.JTI = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID:   p.UserID,
		Role:     p.Role,
		VendorID: p.VendorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.JTI,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then the claim
// rules in Validate.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
