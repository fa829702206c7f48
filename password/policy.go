package password

import (
	"strconv"
	"strings"
	"unicode"
)

// Policy describes the minimum strength a new password must have.
type Policy struct {
	MinLength              int
	RequireDigit           bool
	RequireLower           bool
	RequireUpper           bool
	RequireNonAlphanumeric bool
}

// DefaultPolicy accepts "Bob123": six characters with a digit, a lower-case
// and an upper-case letter.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:    6,
		RequireDigit: true,
		RequireLower: true,
		RequireUpper: true,
	}
}

// PolicyError lists every rule a rejected password broke.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy violation: " + strings.Join(e.Violations, ", ")
}

// Check returns a *PolicyError when pw does not satisfy p, or nil.
func (p Policy) Check(pw string) error {
	var hasDigit, hasLower, hasUpper, hasOther bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasOther = true
		}
	}

	var violations []string
	if len([]rune(pw)) < p.MinLength {
		violations = append(violations, "at least "+strconv.Itoa(p.MinLength)+" characters")
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, "a digit")
	}
	if p.RequireLower && !hasLower {
		violations = append(violations, "a lower-case letter")
	}
	if p.RequireUpper && !hasUpper {
		violations = append(violations, "an upper-case letter")
	}
	if p.RequireNonAlphanumeric && !hasOther {
		violations = append(violations, "a non-alphanumeric character")
	}

	if len(violations) == 0 {
		return nil
	}
	return &PolicyError{Violations: violations}
}
