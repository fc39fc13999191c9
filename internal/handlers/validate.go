package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct checks s against its validate tags and reports one
// message per failing field.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid("Invalid request body")
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			if fe.Kind() == reflect.Slice {
				messages = append(messages, field+" must contain at least "+param+" items")
			} else {
				messages = append(messages, field+" must be at least "+param+" characters")
			}
		case "max":
			if fe.Kind() == reflect.Slice {
				messages = append(messages, field+" must contain at most "+param+" items")
			} else {
				messages = append(messages, field+" must be at most "+param+" characters")
			}
		case "email":
			messages = append(messages, field+" must be a valid email")
		case "oneof":
			messages = append(messages, field+" must be one of "+strings.ReplaceAll(param, " ", ", "))
		case "mongodb":
			messages = append(messages, field+" must be a valid id")
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return apperr.Invalid("Validation failed", messages...)
}
