package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com"))
	assert.True(t, ValidateEmail("a.b+c@sub.example.io"))
	assert.False(t, ValidateEmail("user@example"))
	assert.False(t, ValidateEmail("user example@x.com"))
	assert.False(t, ValidateEmail(""))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Secret1!"))

	err := ValidatePassword("abc")
	require.Error(t, err)
	msgs := PasswordErrors(err)
	assert.Equal(t, []string{
		"Password must be at least 8 characters long",
		"Password must contain at least one uppercase letter",
		"Password must contain at least one number",
		"Password must contain at least one special character",
	}, msgs)
	assert.True(t, strings.HasPrefix(err.Error(), "weak password: "))
	assert.Equal(t, "Password validation failed:\n"+strings.Join(msgs, "\n"), PasswordMessage(err))
	assert.ErrorIs(t, err, ErrPasswordNoDigit)

	assert.Equal(t, []string{"Password must contain at least one special character"}, PasswordErrors(ValidatePassword("Secret123")))
	assert.Nil(t, PasswordErrors(nil))
}

func TestErrorStringsAndUserMessages(t *testing.T) {
	for _, err := range []error{ErrPasswordTooShort, ErrPasswordNoUpper, ErrPasswordNoDigit, ErrPasswordNoSpecial, ErrInvalidEmail, ErrInvalidAccountName} {
		text := err.Error()
		assert.Equal(t, strings.ToLower(text[:1]), text[:1], "error %q should start lower-case", text)
		assert.False(t, strings.HasSuffix(text, "."), "error %q should not end with punctuation", text)
		assert.NotEqual(t, text, UserMessage(err))
	}
	assert.Equal(t, "Please enter a valid email address", UserMessage(fmt.Errorf("sign up: %w", ErrInvalidEmail)))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}

func TestValidateAccountName(t *testing.T) {
	assert.NoError(t, ValidateAccountName("Main"))
	assert.ErrorIs(t, ValidateAccountName("  ab  "), ErrInvalidAccountName)
	assert.ErrorIs(t, ValidateAccountName(strings.Repeat("x", 51)), ErrInvalidAccountName)
}

func TestAddresses(t *testing.T) {
	addr := "0x742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6"
	assert.True(t, ValidateAddress(addr))
	assert.True(t, ValidateAddress(strings.ToLower(addr)))
	assert.False(t, ValidateAddress("742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6"))
	assert.False(t, ValidateAddress("0x123"))
	assert.False(t, ValidateAddress("0xZZ2d35Cc6634C0532925a3b8D4C9db96C4b4d8b6"))

	assert.Equal(t, "0x742d...d8b6", FormatAddress(addr))
	assert.Equal(t, "short", FormatAddress("short"))

	checksummed := ChecksumAddress(strings.ToLower(addr))
	assert.True(t, strings.EqualFold(addr, checksummed))
	assert.Equal(t, checksummed, ChecksumAddress(checksummed))
}
