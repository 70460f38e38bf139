package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// gatewayError covers the two error shapes seen from SMS gateways: the
// httputil envelope and a flat {"code","message"} body.
type gatewayError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes a non-2xx response body and maps it
// to an AppError.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	var ge gatewayError
	if json.Unmarshal(body, &ge) == nil {
		switch {
		case ge.Error != nil:
			return mapStatus(resp.StatusCode, ge.Error.Code, ge.Error.Message, upstream)
		case ge.Message != "":
			return mapStatus(resp.StatusCode, ge.Code, ge.Message, upstream)
		}
	}
	return mapStatus(resp.StatusCode, "", string(body), upstream)
}

func mapStatus(status int, code, message, upstream string) error {
	msg := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(msg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case status == http.StatusConflict:
		return apperrors.Conflict(msg)
	case status == http.StatusServiceUnavailable, status == http.StatusTooManyRequests:
		return apperrors.Unavailable(msg)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", upstream, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: msg, Status: status}
	}
}

// IsClientError reports whether status is 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
