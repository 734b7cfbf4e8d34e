package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var payloadValidator = validator.New()

// Payload validates a tagged struct decoded from an external source (a rule
// fix payload, a processing-plan envelope). Field constraints live on the
// struct tags; this flattens validator output into one readable error.
func Payload(v any) error {
	err := payloadValidator.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(parts, "; "))
}
