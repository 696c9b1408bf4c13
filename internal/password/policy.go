package password

import (
	"unicode"

	"github.com/glassworks/authcore/params"
)

// Policy violation reasons. Each rule is checked and reported independently.
const (
	ViolationTooShort    = "too_short"
	ViolationNoUppercase = "no_uppercase"
	ViolationNoLowercase = "no_lowercase"
	ViolationNoDigit     = "no_digit"
	ViolationNoSpecial   = "no_special"
)

type PolicyResult struct {
	Valid      bool
	Violations []string
	Score      int
}

// PolicyValidator scores a candidate password against the configured rules.
// It is pure: the plaintext is never logged or retained.
type PolicyValidator struct {
	minLength int
}

func NewPolicyValidator() *PolicyValidator {
	return &PolicyValidator{minLength: params.PasswordMinLength}
}

func (v *PolicyValidator) Validate(plaintext string) PolicyResult {
	var (
		hasUpper   bool
		hasLower   bool
		hasDigit   bool
		hasSpecial bool
	)
	runes := []rune(plaintext)
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	result := PolicyResult{}
	if len(runes) < v.minLength {
		result.Violations = append(result.Violations, ViolationTooShort)
	} else {
		result.Score++
	}
	if !hasUpper {
		result.Violations = append(result.Violations, ViolationNoUppercase)
	} else {
		result.Score++
	}
	if !hasLower {
		result.Violations = append(result.Violations, ViolationNoLowercase)
	} else {
		result.Score++
	}
	if !hasDigit {
		result.Violations = append(result.Violations, ViolationNoDigit)
	} else {
		result.Score++
	}
	if !hasSpecial {
		result.Violations = append(result.Violations, ViolationNoSpecial)
	} else {
		result.Score++
	}

	// length bonuses
	if len(runes) >= 12 {
		result.Score++
	}
	if len(runes) >= 16 {
		result.Score++
	}

	result.Valid = len(result.Violations) == 0
	return result
}
