package response

import "errors"

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST ErrCode = "REQUEST_FAILED"
	BAD_REQUEST    ErrCode = "FAILED_TO_DECODE"
	INVALID_FILTER ErrCode = "INVALID_FILTER"
	INVALID_QUERY  ErrCode = "INVALID_QUERY"
	NOT_FOUND      ErrCode = "NOT_FOUND"
	VIEW_NOT_FOUND ErrCode = "VIEW_NOT_FOUND"
	VIEW_CLOSED    ErrCode = "VIEW_CLOSED"
	LOCKED         ErrCode = "LOCKED"
	CONFLICT       ErrCode = "CONFLICT"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidLayer = errors.New("invalid layer")
	ErrNotFound     = errors.New("resource not found")
	ErrViewNotFound = errors.New("view not found")
	ErrViewClosed   = errors.New("view closed")
	ErrLocked       = errors.New("resource is locked")
	ErrConflict     = errors.New("conflict")
)

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}
