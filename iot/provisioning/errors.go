package provisioning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Registry operations which can fail
const (
	OpRegister         = "register"
	OpDescribeEndpoint = "describe-endpoint"
)

// Error is a failed call to the device registry
type Error struct {
	Op        string
	ThingName string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provisioning %s: %s: %v", e.ThingName, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError is a request which cannot be provisioned as is
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// ErrorMessage returns the message text of err as it is reported to the caller.
// Service errors from AWS contribute their API message, registry errors the
// message of their cause.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return msg
		}
		return apiErr.ErrorCode()
	}
	var perr *Error
	if errors.As(err, &perr) && perr.Err != nil {
		return perr.Err.Error()
	}
	return err.Error()
}
