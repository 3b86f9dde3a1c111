package totp

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Service turns stored TOTP seeds into display values.
type Service interface {
	// Format renders a seed as "<seed> => <code>" for the current time.
	Format(raw string) string

	// FormatAt renders a seed for a specific time.
	FormatAt(raw string, t time.Time) string

	// GenerateCodeAtTime generates a TOTP code for a specific time.
	GenerateCodeAtTime(secret string, t time.Time) (string, error)
}

// DefaultService implements TOTP operations.
type DefaultService struct {
	period    uint
	digits    otp.Digits
	algorithm otp.Algorithm
	now       func() time.Time
}

// NewService creates a TOTP service with the standard settings: 30 second
// step, 6 digits, SHA1.
func NewService() *DefaultService {
	return NewServiceWithConfig(30, 6, "SHA1")
}

// NewServiceWithConfig creates a TOTP service with custom configuration.
// Unknown algorithms fall back to SHA1.
func NewServiceWithConfig(period, digits uint, algorithm string) *DefaultService {
	return &DefaultService{
		period:    period,
		digits:    otp.Digits(digits),
		algorithm: parseAlgorithm(algorithm),
		now:       time.Now,
	}
}

// WithClock returns a copy of the service reading time from now.
func (s *DefaultService) WithClock(now func() time.Time) *DefaultService {
	clone := *s
	clone.now = now
	return &clone
}

// Format renders a seed for the current time step. A value that does not
// decode as base32 is returned unchanged; an empty value means "not set".
func (s *DefaultService) Format(raw string) string {
	return s.FormatAt(raw, s.now())
}

// FormatAt renders a seed for the time step containing t.
func (s *DefaultService) FormatAt(raw string, t time.Time) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}

	code, err := s.GenerateCodeAtTime(raw, t)
	if err != nil {
		return raw
	}

	return fmt.Sprintf("%s => %s", raw, code)
}

// GenerateCodeAtTime generates a TOTP code for a specific time.
func (s *DefaultService) GenerateCodeAtTime(secret string, t time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("totp: secret cannot be empty")
	}

	code, err := totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    s.period,
		Digits:    s.digits,
		Algorithm: s.algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("totp: failed to generate code at time %v: %w", t, err)
	}

	return code, nil
}

// GetTimeWindow returns the current TOTP time window information.
func (s *DefaultService) GetTimeWindow() (current int64, remaining time.Duration) {
	now := s.now()
	current = now.Unix() / int64(s.period)

	nextWindow := (current + 1) * int64(s.period)
	remaining = time.Unix(nextWindow, 0).Sub(now)

	return current, remaining
}

func parseAlgorithm(name string) otp.Algorithm {
	switch strings.ToUpper(name) {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	case "MD5":
		return otp.AlgorithmMD5
	default:
		return otp.AlgorithmSHA1
	}
}
