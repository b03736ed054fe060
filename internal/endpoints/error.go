package endpoints

import (
	"context"
	"errors"

	"metrics-monitor/internal/auth"
	"metrics-monitor/internal/domain"
)

const (
	API_SUCCESS      = iota + 303000 // 303000
	API_FAILURE                      // 303001 - Generic API failure
	API_UNAUTHORIZED                 // 303002 - Authentication/Authorization failure
)

const (
	INVALID_REQUEST_BODY  = iota + 101 // 101 - Error parsing request body
	INVALID_PARAMETERS                 // 102 - Invalid query or path parameters
	INVALID_TIMESTAMP                  // 103 - Timestamp not in an accepted layout
	REQUEST_CANCELLED                  // 104 - Request was cancelled by client or server timeout
	STORE_FAILURE                      // 105 - The store could not complete the read or write
	INVALID_CREDENTIALS                // 106 - Login rejected
	LIVE_DATA_UNAVAILABLE              // 107 - Live sampling is not configured
)

var (
	ErrInvalidRequestBody = errors.New("invalid request body format or missing fields")
	ErrInvalidParameters  = errors.New("invalid parameter; limit and offset must be integers and aggregate a boolean")
	ErrRequestCancelled   = errors.New("request cancelled by client or server timeout")
	ErrStoreFailure       = errors.New("metrics store failure")
	ErrUnauthorized       = errors.New("authentication required")
	ErrLiveUnavailable    = errors.New("live sampling is not available")
)

func GetErrorCode(err error) int {
	if err == nil {
		return API_SUCCESS
	}

	switch {
	case errors.Is(err, ErrInvalidRequestBody):
		return INVALID_REQUEST_BODY
	case errors.Is(err, ErrInvalidParameters), errors.Is(err, domain.ErrEmptyName):
		return INVALID_PARAMETERS
	case errors.Is(err, domain.ErrInvalidTimestamp):
		return INVALID_TIMESTAMP
	case errors.Is(err, ErrRequestCancelled), errors.Is(err, context.Canceled):
		return REQUEST_CANCELLED
	case errors.Is(err, ErrStoreFailure):
		return STORE_FAILURE
	case errors.Is(err, auth.ErrInvalidCredentials):
		return INVALID_CREDENTIALS
	case errors.Is(err, ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		return API_UNAUTHORIZED
	case errors.Is(err, ErrLiveUnavailable):
		return LIVE_DATA_UNAVAILABLE
	default:
		return API_FAILURE // Default for any unhandled error
	}
}
