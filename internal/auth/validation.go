package auth

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

// bcrypt rejects longer input
const maxPasswordBytes = 72
const minNameLength = 2

// FieldErrors хранит ошибки формы по имени поля
type FieldErrors map[string]string

// ValidateEmail returns the form message for email, "" when valid.
func ValidateEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return "Email is required"
	}
	if !emailPattern.MatchString(email) {
		return "Please enter a valid email address"
	}
	return ""
}

func ValidatePassword(password string) string {
	if password == "" {
		return "Password is required"
	}
	if len(password) < minPasswordLength {
		return "Password must be at least 6 characters long"
	}
	if len(password) > maxPasswordBytes {
		return "Password must be at most 72 bytes long"
	}
	return ""
}

// ValidateName checks a first or last name; label is used in the message.
func ValidateName(name, label string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return label + " is required"
	}
	if len([]rune(name)) < minNameLength {
		return label + " must be at least 2 characters long"
	}
	return ""
}

func ValidateConfirmPassword(password, confirm string) string {
	if confirm == "" {
		return "Please confirm your password"
	}
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

func (r *SignInRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	addError(errs, "email", ValidateEmail(r.Email))
	addError(errs, "password", ValidatePassword(r.Password))
	return errs
}

func (r *SignUpRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	addError(errs, "first_name", ValidateName(r.FirstName, "First name"))
	addError(errs, "last_name", ValidateName(r.LastName, "Last name"))
	addError(errs, "email", ValidateEmail(r.Email))
	addError(errs, "password", ValidatePassword(r.Password))
	addError(errs, "confirm_password", ValidateConfirmPassword(r.Password, r.ConfirmPassword))
	return errs
}

func (r *ForgotPasswordRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	addError(errs, "email", ValidateEmail(r.Email))
	return errs
}

func addError(errs FieldErrors, field, msg string) {
	if msg != "" {
		errs[field] = msg
	}
}
