package controller

import (
	"fmt"
	"net/http"

	"github.com/evergreen-ci/gimlet"
	"github.com/pkg/errors"
)

func validationError(format string, args ...interface{}) error {
	return gimlet.ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    fmt.Sprintf(format, args...),
	}
}

func authError(msg string) error {
	return gimlet.ErrorResponse{
		StatusCode: http.StatusForbidden,
		Message:    msg,
	}
}

func notFoundError(msg string) error {
	return gimlet.ErrorResponse{
		StatusCode: http.StatusNotFound,
		Message:    msg,
	}
}

func upstreamError(format string, args ...interface{}) error {
	return gimlet.ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    fmt.Sprintf(format, args...),
	}
}

// storageError exposes the message of the root cause of a store error.
func storageError(err error) error {
	return gimlet.ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    errors.Cause(err).Error(),
	}
}

func transformError(id string) error {
	return gimlet.ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    fmt.Sprintf("Could not process results for test %s", id),
	}
}

// ErrorBody is the JSON body of every failed operation.
type ErrorBody struct {
	Error string `json:"error"`
}

func errorResponse(err error) Response {
	if resp, ok := errors.Cause(err).(gimlet.ErrorResponse); ok {
		return Response{StatusCode: resp.StatusCode, Body: ErrorBody{Error: resp.Message}}
	}

	return Response{StatusCode: http.StatusInternalServerError, Body: ErrorBody{Error: err.Error()}}
}
