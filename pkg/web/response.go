// Package web defines common components for a web application.
package web

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	AccessToken          string     `json:"access_token,omitempty"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty"`
	Data                 any        `json:"data,omitempty"`
	Error                string     `json:"error,omitempty"`
}

// Error wraps a given err into json friendly response.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg returns human readable message for the failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "email":
		return " must be a valid email"
	case "alphanum":
		return " must contain only letters and digits"
	case "uuid":
		return " must be a valid uuid"
	case "category":
		return " is not supported"
	case "oneof":
		return " must be one of: " + fe.Param()
	}

	return " is invalid"
}

// BindingError converts binding err into a response.
//
// Validation errors are reported for the first failed field only.
func BindingError(err error) Response {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		field := ve[0]
		return Response{Error: field.Field() + GetErrorMsg(field)}
	}

	return Error(err)
}
