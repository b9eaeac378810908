// Package validation holds the form rules shared by the portal shell and the
// development API server, plus identifier normalization helpers.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password the portal accepts.
const MinPasswordLength = 6

// LoginForm is the payload of the sign-in form.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ChangePasswordForm is the payload of the change-password form.
type ChangePasswordForm struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v against its `validate` tags and folds every field error
// into one human-readable error.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// fieldError converts a single FieldError into the message the forms show.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

var (
	canonicalUUID = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
	bareUUID      = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
)

// IsValidUUID reports whether s is a dashed RFC 4122 UUID of version 1-5.
func IsValidUUID(s string) bool {
	return canonicalUUID.MatchString(s)
}

// NormalizeUUID returns id in canonical dashed form. Valid UUIDs are returned
// unchanged, 32 hex digits without dashes get their dashes back, and anything
// else is returned as given.
func NormalizeUUID(id string) string {
	id = strings.TrimSpace(id)
	if IsValidUUID(id) {
		return id
	}
	if bareUUID.MatchString(id) {
		return id[0:8] + "-" + id[8:12] + "-" + id[12:16] + "-" + id[16:20] + "-" + id[20:]
	}
	return id
}

// ParseEventID normalizes id and parses it as a UUID.
func ParseEventID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(NormalizeUUID(id))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid event id %q: %w", id, err)
	}
	return parsed, nil
}
