package dto

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			if name := strings.Split(f.Tag.Get(tag), ",")[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ticket_category", func(fl validator.FieldLevel) bool {
		return domain.TicketCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ticket_priority", func(fl validator.FieldLevel) bool {
		return domain.TicketPriority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("positive_int", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 1
	})
	return v
}

// messages maps field.tag to the message reported to clients.
var messages = map[string]string{
	"customerName.required": "Customer name is required",
	"customerName.max":      "Customer name cannot exceed 100 characters",
	"email.required":        "Email is required",
	"email.email":           "Please provide a valid email address",
	"email.max":             "Email cannot exceed 255 characters",
	"subject.required":      "Subject is required",
	"subject.max":           "Subject cannot exceed 200 characters",
	"description.required":  "Description is required",
	"description.min":       "Description must be at least 10 characters long",
	"description.max":       "Description cannot exceed 5000 characters",
	"assignedTeam.max":      "Assigned team cannot exceed 100 characters",
	"sortBy.oneof":          "Invalid sortBy. Must be one of: createdAt, priority, category, status",
	"sortOrder.oneof":       "Invalid sortOrder. Must be asc or desc",
	"page.positive_int":     "Page must be a positive integer",
	"limit.positive_int":    "Limit must be a positive integer",
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "ticket_status":
		return "Invalid status. Must be one of: " + strings.Join(domain.StatusNames(), ", ")
	case "ticket_category":
		return "Invalid category. Must be one of: " + strings.Join(domain.CategoryNames(), ", ")
	case "ticket_priority":
		return "Invalid priority. Must be one of: " + strings.Join(domain.PriorityNames(), ", ")
	}
	return "Invalid " + fe.Field()
}

// Validate checks a request struct and returns a VALIDATION_ERROR carrying
// one message per offending field.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("Validation failed", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return apperrors.NewFieldErrors(fields)
}
