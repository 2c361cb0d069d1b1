package security

import (
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// MinPasswordLength is the registration policy floor.
const MinPasswordLength = 8

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule rejects passwords shorter than the given length.
func MinLengthRule(length int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len(password) < length {
			return &PasswordValidationError{
				Code:    "password_too_short",
				Message: fmt.Sprintf("password must be at least %d characters", length),
			}
		}
		return nil
	})
}

// DefaultPasswordValidator enforces the registration policy. Entropy scoring
// is advisory only (see PasswordStrength) and never blocks.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(MinLengthRule(MinPasswordLength))
}

// PasswordStrength scores a password from 0 (guessable) to 4 using zxcvbn.
// userInputs lists related strings (email, name) that weaken the password.
func PasswordStrength(password string, userInputs ...string) int {
	if password == "" {
		return 0
	}
	return zxcvbn.PasswordStrength(password, userInputs).Score
}
