// Package validate checks registration input.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// Password requires at least 8 characters drawn from at least three of the
// four character classes: lowercase, uppercase, digit, special.
func Password(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	classes := 0
	for _, ok := range []bool{lower, upper, digit, special} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return fmt.Errorf("password must mix at least three of: lowercase, uppercase, digits, special characters")
	}

	return nil
}

// EmailValidator checks address syntax and, when configured, restricts the
// domain to an allow list.
type EmailValidator struct {
	allowedDomains map[string]struct{}
}

// NewEmailValidator builds a validator. An empty domain list allows any
// domain.
func NewEmailValidator(allowedDomains []string) *EmailValidator {
	v := &EmailValidator{}
	if len(allowedDomains) > 0 {
		v.allowedDomains = make(map[string]struct{}, len(allowedDomains))
		for _, d := range allowedDomains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				v.allowedDomains[d] = struct{}{}
			}
		}
	}
	return v
}

func (v *EmailValidator) Validate(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}

	if len(v.allowedDomains) == 0 {
		return nil
	}

	at := strings.LastIndex(email, "@")
	domain := strings.ToLower(email[at+1:])
	if _, ok := v.allowedDomains[domain]; !ok {
		return fmt.Errorf("email domain %q is not allowed", domain)
	}

	return nil
}
