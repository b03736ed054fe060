package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/util"
)

type APIResponse struct {
	Status    bool        `json:"status"`
	Value     interface{} `json:"value,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode int         `json:"error_code"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	data, _ := json.Marshal(body)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	w.Write(data)
}

func (res APIResponse) WriteErrorResponse(w http.ResponseWriter, err error) {
	res.WriteErrorResponseWithStatusCode(w, err, StatusCodeFor(err))
}

func (res APIResponse) WriteErrorResponseWithStatusCode(w http.ResponseWriter, err error, StatusCode int) {
	res.writeError(w, err, StatusCode, nil)
}

func (res APIResponse) writeError(w http.ResponseWriter, err error, statusCode int, value interface{}) {
	res.Status = false
	res.Value = value
	res.Error = err.Error()
	if statusCode == http.StatusUnauthorized {
		res.ErrorCode = API_UNAUTHORIZED
	} else {
		res.ErrorCode = GetErrorCode(err)
	}
	writeJSON(w, statusCode, res)
}

func (res APIResponse) WriteResultResponse(w http.ResponseWriter, result interface{}) {
	res.Status = true
	res.Value = result
	res.Error = ""
	res.ErrorCode = GetErrorCode(nil)
	writeJSON(w, http.StatusOK, res)
}

// StatusCodeFor picks the HTTP status matching an error's API code.
func StatusCodeFor(err error) int {
	switch GetErrorCode(err) {
	case API_SUCCESS:
		return http.StatusOK
	case INVALID_REQUEST_BODY, INVALID_PARAMETERS, INVALID_TIMESTAMP:
		return http.StatusBadRequest
	case REQUEST_CANCELLED:
		return http.StatusRequestTimeout
	case API_UNAUTHORIZED, INVALID_CREDENTIALS:
		return http.StatusUnauthorized
	case LIVE_DATA_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeStoreError reports a failed store call. Validation problems keep their
// own code; anything else is a store failure.
func writeStoreError(w http.ResponseWriter, res APIResponse, logger *util.MetricsLogger, operation string, err error) {
	writeReadError(w, res, logger, operation, err, nil)
}

// writeReadError is writeStoreError for list reads. The envelope carries
// empty as its value, so clients always get a list back.
func writeReadError(w http.ResponseWriter, res APIResponse, logger *util.MetricsLogger, operation string, err error, empty interface{}) {
	switch {
	case errors.Is(err, context.Canceled):
		logger.LogEvent(util.LOG_LEVEL_WARN, operation, "cancelled")
		res.writeError(w, ErrRequestCancelled, http.StatusRequestTimeout, empty)
	case errors.Is(err, domain.ErrEmptyName), errors.Is(err, domain.ErrInvalidTimestamp):
		logger.LogEvent(util.LOG_LEVEL_WARN, operation, "rejected:", err)
		res.writeError(w, err, StatusCodeFor(err), empty)
	default:
		logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while", operation+". Err -", err)
		err = fmt.Errorf("%w: %v", ErrStoreFailure, err)
		res.writeError(w, err, StatusCodeFor(err), empty)
	}
}
