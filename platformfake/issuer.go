package platformfake

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	TokenTypePlatform = "platform"
	TokenTypeSystem   = "system"
)

// Claims are carried by platform and system tokens.
type Claims struct {
	TokenType      string `json:"token_type"`
	SystemCode     string `json:"system_code,omitempty"`
	RoleID         int    `json:"role_id,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
	Generation     int    `json:"gen"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// Issuer creates and validates platform and system tokens.
type Issuer struct {
	signer      Signer
	issuer      string
	platformTTL time.Duration
	systemTTL   time.Duration
}

func NewIssuer(signer Signer, issuer string, platformTTL, systemTTL time.Duration) *Issuer {
	return &Issuer{
		signer:      signer,
		issuer:      issuer,
		platformTTL: platformTTL,
		systemTTL:   systemTTL,
	}
}

// PlatformToken creates a token scoped to the platform (home) context.
func (i *Issuer) PlatformToken(userID int64, generation int) (string, error) {
	return i.sign(Claims{
		TokenType:        TokenTypePlatform,
		Generation:       generation,
		RegisteredClaims: i.registered(userID, i.platformTTL),
	})
}

// SystemToken creates a token scoped to one system, role and organization.
func (i *Issuer) SystemToken(userID int64, systemCode string, roleID int, orgID *int64, generation int) (string, error) {
	return i.sign(Claims{
		TokenType:        TokenTypeSystem,
		SystemCode:       systemCode,
		RoleID:           roleID,
		OrganizationID:   orgID,
		Generation:       generation,
		RegisteredClaims: i.registered(userID, i.systemTTL),
	})
}

func (i *Issuer) PlatformTTL() time.Duration {
	return i.platformTTL
}

func (i *Issuer) SystemTTL() time.Duration {
	return i.systemTTL
}

// Parse verifies the signature and expiry of raw and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, i.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("[Issuer.Parse] %w", err)
	}
	return claims, nil
}

func (i *Issuer) registered(userID int64, ttl time.Duration) jwt.RegisteredClaims {
	now := NowTimeFunc()
	return jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.New().String(),
	}
}

func (i *Issuer) sign(claims Claims) (string, error) {
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}
