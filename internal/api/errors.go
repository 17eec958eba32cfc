package api

import (
	"fmt"
	"net/http"

	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/labstack/echo/v5"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrInvalidRequest is matched by errors caused by malformed requests, as opposed to invalid topologies.
var ErrInvalidRequest = errors.New("invalid request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(format string, args ...any) error {
	return invalidRequestError{msg: fmt.Sprintf(format, args...)}
}

// errorType classifies errors into the "type" reported to clients.
func errorType(err error) string {
	switch {
	case errors.Is(err, distributed.ErrConfig):
		return "config_error"
	case errors.Is(err, distributed.ErrQuery):
		return "query_error"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request_error"
	default:
		return "server_error"
	}
}

func writeError(c *echo.Context, requestID string, err error) error {
	errType := errorType(err)
	status := http.StatusBadRequest
	if errType == "server_error" {
		status = http.StatusInternalServerError
		klog.Errorf("request %s failed: %+v", requestID, err)
	} else {
		klog.V(1).Infof("request %s rejected: %v", requestID, err)
	}
	return c.JSON(status, ErrorResponse{
		RequestID: requestID,
		Error: ErrorBody{
			Type:    errType,
			Message: err.Error(),
		},
	})
}
