package middleware

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
)

// Input validation and sanitization utilities

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the `validate` tags of a request DTO and returns the first
// failure as a readable message.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Errorf("%s must be a valid email address", field)
	case "uuid":
		return fmt.Errorf("%s must be a valid id", field)
	}
	return fmt.Errorf("%s is invalid", field)
}

// ValidateFileType checks the fileType form field
func ValidateFileType(s string) (uploads.FileType, error) {
	ft, ok := uploads.ParseFileType(s)
	if !ok {
		return "", fmt.Errorf("invalid file type: %q (allowed: IMAGE, ARTICLE, VIDEO)", s)
	}
	return ft, nil
}

// ValidateID validates ids taken from the URL path
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid id format")
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFileName keeps the base name and replaces anything outside [a-zA-Z0-9._-].
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(SanitizeString(name), `\`, "/"))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
