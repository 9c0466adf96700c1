// Package credential mints short-lived service tokens for autonomous calls.
// The monitor has no human caller, so every outbound request it makes is
// authorized by one of these.
package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/clock"
	"github.com/meterline/meterline/internal/config"
)

// Issuer mints a signed tenant-scoped service credential.
type Issuer interface {
	Issue(organizationID int64) (string, error)
}

type jwtIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

// NewIssuer builds an HS256 issuer from application config.
func NewIssuer(cfg config.Config, clk clock.Clock) Issuer {
	return &jwtIssuer{
		secret: []byte(cfg.CredentialSecret),
		issuer: cfg.CredentialIssuer,
		ttl:    cfg.CredentialTTL,
		clock:  clk,
	}
}

func (i *jwtIssuer) Issue(organizationID int64) (string, error) {
	now := i.clock.Now()
	claims := jwt.MapClaims{
		"sub":            "metering-service",
		"iss":            i.issuer,
		"iat":            now.Unix(),
		"exp":            now.Add(i.ttl).Unix(),
		"organizationId": organizationID,
		"orgId":          organizationID,
		"type":           "service",
		"service":        "metering",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindInvalidState, "sign service credential")
	}
	return token, nil
}
