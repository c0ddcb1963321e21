package types

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrTokenNotFound   = errors.New("token not found")

	// ErrForbidden covers both ownership/role failures and actions attempted
	// in a lifecycle state that does not permit them. It is deliberately
	// distinct from the not-found errors above: an unknown id is NotFound, a
	// known id the actor may not touch is Forbidden.
	ErrForbidden = errors.New("forbidden")

	ErrInvalidToken = errors.New("invalid token")
)

// API error codes returned in structured failure bodies.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeServerError  = "SERVER_ERROR"
	CodeUserNotFound = "USER_NOT_FOUND"
	CodeInvalidToken = "INVALID_TOKEN"
)

// APIError is the wire shape of every failure response.
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}
