package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
)

var (
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperPattern       = regexp.MustCompile(`[A-Z]`)
	digitPattern       = regexp.MustCompile(`[0-9]`)
	specialCharPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

var (
	ErrPasswordTooShort   = errors.New("password shorter than 8 characters")
	ErrPasswordNoUpper    = errors.New("password has no uppercase letter")
	ErrPasswordNoDigit    = errors.New("password has no digit")
	ErrPasswordNoSpecial  = errors.New("password has no special character")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidAccountName = errors.New("account name must be 3 to 50 characters")
)

var userMessages = map[error]string{
	ErrPasswordTooShort:   "Password must be at least 8 characters long",
	ErrPasswordNoUpper:    "Password must contain at least one uppercase letter",
	ErrPasswordNoDigit:    "Password must contain at least one number",
	ErrPasswordNoSpecial:  "Password must contain at least one special character",
	ErrInvalidEmail:       "Please enter a valid email address",
	ErrInvalidAccountName: "Account name must be between 3 and 50 characters",
}

// UserMessage returns the text shown to the user for a validation error.
// Errors without a known message fall back to err.Error().
func UserMessage(err error) string {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword checks every strength rule and returns all failures at once.
func ValidatePassword(password string) error {
	var result *multierror.Error
	if utf8.RuneCountInString(password) < 8 {
		result = multierror.Append(result, ErrPasswordTooShort)
	}
	if !upperPattern.MatchString(password) {
		result = multierror.Append(result, ErrPasswordNoUpper)
	}
	if !digitPattern.MatchString(password) {
		result = multierror.Append(result, ErrPasswordNoDigit)
	}
	if !specialCharPattern.MatchString(password) {
		result = multierror.Append(result, ErrPasswordNoSpecial)
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return "weak password: " + strings.Join(msgs, "; ")
	}
	return result
}

// PasswordErrors flattens the result of ValidatePassword into user messages.
func PasswordErrors(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		msgs := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			msgs = append(msgs, UserMessage(e))
		}
		return msgs
	}
	return []string{UserMessage(err)}
}

// PasswordMessage is the sign-up error listing every failed rule.
func PasswordMessage(err error) string {
	return "Password validation failed:\n" + strings.Join(PasswordErrors(err), "\n")
}

func ValidateAccountName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 3 || n > 50 {
		return ErrInvalidAccountName
	}
	return nil
}

// ValidateAddress accepts 0x-prefixed 20-byte hex addresses.
func ValidateAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// FormatAddress shortens a well-formed address to 0x1234...abcd. Anything
// else is returned unchanged.
func FormatAddress(address string) string {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// ChecksumAddress returns the EIP-55 form of a valid address.
func ChecksumAddress(address string) string {
	return common.HexToAddress(address).Hex()
}
