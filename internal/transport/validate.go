package transport

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/devteria/identity_service/internal/apperr"
)

const (
	dobLayout  = "2006-01-02"
	minimumAge = 18
)

var (
	usernameCharsRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	hasLetterRe     = regexp.MustCompile(`[A-Za-z]`)
	hasDigitRe      = regexp.MustCompile(`[0-9]`)
	passwordRe      = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// Throwaway mailbox providers rejected at registration.
var disposableEmailDomains = []string{
	"10minutemail.com", "tempmail.org", "guerrillamail.com",
	"mailinator.com", "temp-mail.org", "throwaway.email",
	"getnada.com", "maildrop.cc", "sharklasers.com",
}

// ValidateUsername enforces 8-24 chars from [A-Za-z0-9_] with at least one
// letter and one digit.
func ValidateUsername(username string) error {
	err := validation.Validate(username,
		validation.Required,
		validation.Length(8, 24),
		validation.Match(usernameCharsRe),
	)
	if err != nil || !hasLetterRe.MatchString(username) || !hasDigitRe.MatchString(username) {
		return apperr.ErrUsernameInvalid
	}
	return nil
}

// ValidatePassword enforces alphanumeric-only, minimum 8 chars.
func ValidatePassword(password string) error {
	err := validation.Validate(password,
		validation.Required,
		validation.Length(8, 0),
		validation.Match(passwordRe),
	)
	if err != nil {
		return apperr.ErrPasswordInvalid
	}
	return nil
}

// ValidateEmail checks shape and rejects known disposable domains.
func ValidateEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return apperr.ErrEmailInvalid
	}
	at := strings.LastIndex(email, "@")
	domain := strings.ToLower(email[at+1:])
	for _, d := range disposableEmailDomains {
		if domain == d {
			return apperr.ErrEmailInvalid
		}
	}
	return nil
}

// ParseDOB parses a yyyy-mm-dd date and enforces the minimum age.
func ParseDOB(dob string) (time.Time, error) {
	t, err := time.Parse(dobLayout, dob)
	if err != nil {
		return time.Time{}, apperr.ErrInvalidDOB
	}
	if age(t, time.Now()) < minimumAge {
		return time.Time{}, apperr.ErrInvalidDOB
	}
	return t, nil
}

func age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	return years
}
