package booking

import (
	"fmt"
	"regexp"
	"strings"

	"salonbook/internal/api"
)

// ValidationError is a local input error. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DetailsForm holds the contact fields of the last step.
type DetailsForm struct {
	Name            string
	Email           string
	Phone           string
	Notes           string
	SpecialRequests string
	AcceptTerms     bool
}

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// Validate checks fields in display order and returns the first failure.
func (f DetailsForm) Validate() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return &ValidationError{Field: "name", Message: "Name is required"}
	case strings.TrimSpace(f.Email) == "":
		return &ValidationError{Field: "email", Message: "Email is required"}
	case !emailPattern.MatchString(strings.TrimSpace(f.Email)):
		return &ValidationError{Field: "email", Message: "Invalid email address"}
	case strings.TrimSpace(f.Phone) == "":
		return &ValidationError{Field: "phone", Message: "Phone number is required"}
	case !f.AcceptTerms:
		return &ValidationError{Field: "terms", Message: "You must accept the terms and conditions"}
	}
	return nil
}

// FormFromIdentity prefills contact fields.
func FormFromIdentity(u *api.User) DetailsForm {
	if u == nil {
		return DetailsForm{}
	}
	return DetailsForm{Name: u.FullName(), Email: u.Email, Phone: u.Phone}
}

// NormalizePhone strips separators and checks the digit count.
func NormalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	repl := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")
	s = repl.Replace(s)
	plus := strings.HasPrefix(s, "+")
	digits := filterDigits(strings.TrimPrefix(s, "+"))
	if len(digits) != len(strings.TrimPrefix(s, "+")) {
		return "", false
	}
	if len(digits) < 7 || len(digits) > 15 {
		return "", false
	}
	if plus {
		return "+" + digits, true
	}
	return digits, true
}

func filterDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
