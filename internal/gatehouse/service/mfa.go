package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// totpPeriod is the TOTP time step in seconds (RFC 6238 default).
	totpPeriod = 30
	// totpSkew is the number of adjacent time steps accepted either side
	// of the current one, to absorb clock drift between the server and
	// the authenticator. One step means codes stay valid for at most 90s.
	totpSkew = 1
)

// MFAService generates TOTP shared secrets and validates submitted one-time
// codes.
type MFAService struct {
	Store  store.Store
	Issuer string // issuer name shown in authenticator apps
	Clock  Clock

	// FailureLimit caps failed code submissions per pending login; the
	// session is destroyed when it is reached. Zero disables the cap,
	// matching the historical behavior where MFA failures were only ever
	// rate limited by origin.
	FailureLimit int
}

// EnrollmentData carries what the presentation layer needs to show during
// first-time enrollment. QR rendering is out of scope here; the URI string
// is the whole contract.
type EnrollmentData struct {
	Secret  string // base32 encoded shared secret
	URI     string // otpauth:// provisioning URI
	Issuer  string
	Account string
}

// Provision ensures the user has a TOTP secret, generating and persisting a
// new one only if absent. A failed enrollment attempt therefore keeps the
// same secret and the user can retry against the same QR code.
func (s *MFAService) Provision(ctx context.Context, user *domain.User) (EnrollmentData, error) {
	if user.TOTPSecret != nil && *user.TOTPSecret != "" {
		return EnrollmentData{
			Secret:  *user.TOTPSecret,
			URI:     s.BuildProvisioningURI(user.Username, *user.TOTPSecret),
			Issuer:  s.Issuer,
			Account: user.Username,
		}, nil
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return EnrollmentData{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	secret := key.Secret()
	if err := s.Store.Users().SetTOTPSecret(ctx, user.ID, secret, s.Clock.now()); err != nil {
		return EnrollmentData{}, fmt.Errorf("store TOTP secret: %w", err)
	}
	user.TOTPSecret = &secret

	return EnrollmentData{
		Secret:  secret,
		URI:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Username,
	}, nil
}

// BuildProvisioningURI constructs the otpauth:// URI for an existing secret,
// in the same shape authenticator apps expect from a fresh enrollment.
func (s *MFAService) BuildProvisioningURI(account, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", s.Issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")
	v.Set("period", "30")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + s.Issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// Validate checks a submitted code against the secret at the given instant,
// accepting totpSkew adjacent steps either side.
func (s *MFAService) Validate(code, secret string, now time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
