package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the common JSON envelope. Success payloads embed it and add
// their own fields; errors carry only status and message.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

func OK() Response {
	return Response{Status: true}
}

func Success(msg string) Response {
	return Response{Status: true, Message: msg}
}

func Error(msg string) Response {
	return Response{Status: false, Message: msg}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is required", err.Field()))
		case "email":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid email", err.Field()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return Error(strings.Join(errMsgs, ", "))
}
