// Package token issues and verifies the signed view tokens embedded in
// report QR codes. Tokens are stateless: everything needed to reproduce
// the report (type and filter set) is carried in the signed claims, so
// the server keeps no record of issued links.
package token

import (
	"fmt"
	"image"
	"net/url"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/skip2/go-qrcode"

	fterrors "github.com/tradelane/fleettrack/pkg/errors"
	"github.com/tradelane/fleettrack/pkg/fleet"
)

// DefaultTTL is how long an issued link stays valid when no TTL is
// configured.
const DefaultTTL = 30 * 24 * time.Hour

// qrPixels is the edge length of generated QR images. The renderer scales
// the image to its stamp box, so this only needs enough resolution for
// phone cameras.
const qrPixels = 256

// Claims is the signed payload of a view token.
type Claims struct {
	ReportType string          `json:"reportType"`
	Filter     fleet.FilterSet `json:"filterSet"`
	IssuedAt   int64           `json:"issuedAt"`
}

// Valid implements jwt.Claims. Expiry is checked by the Issuer against
// its configured TTL, not here, so that the window is a server-side
// policy rather than baked into the token.
func (c *Claims) Valid() error {
	if c.ReportType == "" {
		return fmt.Errorf("missing report type")
	}
	if c.IssuedAt <= 0 {
		return fmt.Errorf("missing issue timestamp")
	}
	return nil
}

// Issuer signs and verifies view tokens with an HMAC-SHA256 secret.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the issuer's clock. Used by tests to pin issue and
// verification times.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an Issuer. The secret must be non-empty; a zero ttl
// falls back to DefaultTTL. baseURL is the public root the viewer links
// point at, without a trailing slash.
func NewIssuer(secret string, ttl time.Duration, baseURL string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, fterrors.ConfigError("CONFIG_MISSING_SECRET", "view token secret is not set")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a token for the given report type and filter set.
func (i *Issuer) Issue(reportType string, filter fleet.FilterSet) (string, error) {
	claims := &Claims{
		ReportType: reportType,
		Filter:     filter,
		IssuedAt:   i.now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fterrors.InternalError("TOKEN_SIGNING_FAILED", fmt.Sprintf("signing view token: %v", err))
	}
	return signed, nil
}

// Verify parses and validates a token string, returning its claims. A
// token outside the issuer's TTL window fails with TOKEN_EXPIRED; any
// other defect (bad signature, wrong algorithm, malformed claims) fails
// with TOKEN_INVALID.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fterrors.TokenInvalid(fmt.Sprintf("view token rejected: %v", err))
	}

	issued := time.Unix(claims.IssuedAt, 0)
	if i.now().Sub(issued) > i.ttl {
		return nil, fterrors.TokenExpired(fmt.Sprintf("view token issued %s is outside the %s window",
			issued.UTC().Format(time.RFC3339), i.ttl))
	}
	return claims, nil
}

// ViewerURL builds the public link a token resolves to.
func (i *Issuer) ViewerURL(tokenString string) string {
	return fmt.Sprintf("%s/view/report?token=%s", i.baseURL, url.QueryEscape(tokenString))
}

// QRImage encodes the viewer link for a token as a QR image. Callers
// treat a failure as a degraded render and stamp nothing.
func (i *Issuer) QRImage(tokenString string) (image.Image, error) {
	qr, err := qrcode.New(i.ViewerURL(tokenString), qrcode.Medium)
	if err != nil {
		return nil, fterrors.AssetDegraded(fmt.Sprintf("encoding QR code: %v", err))
	}
	return qr.Image(qrPixels), nil
}
