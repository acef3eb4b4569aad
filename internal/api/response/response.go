// Package response writes the JSON envelopes every API handler returns.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
)

// APIResponse is the success envelope
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of a list endpoint
type PaginatedResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    Meta        `json:"meta"`
}

// Meta describes the page returned
type Meta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

var statusByCode = map[string]int{
	apperrors.CodeNotFound:            http.StatusNotFound,
	apperrors.CodeDuplicateEntry:      http.StatusConflict,
	apperrors.CodeInvalidInput:        http.StatusBadRequest,
	apperrors.CodeExtractionFailed:    http.StatusUnprocessableEntity,
	apperrors.CodeSummarizationFailed: http.StatusBadGateway,
	apperrors.CodeTransportFailure:    http.StatusBadGateway,
	apperrors.CodeUnauthorized:        http.StatusUnauthorized,
	apperrors.CodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
}

func ok(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, APIResponse{Success: true, Data: data, Message: message})
}

func fail(c echo.Context, status int, message, code string) error {
	return c.JSON(status, ErrorResponse{Success: false, Error: message, Code: code})
}

// Success writes 200 with data
func Success(c echo.Context, data interface{}) error {
	return ok(c, http.StatusOK, data, "")
}

// SuccessWithMessage writes 200 with data and a human readable message
func SuccessWithMessage(c echo.Context, data interface{}, message string) error {
	return ok(c, http.StatusOK, data, message)
}

// Created writes 201 with the new resource
func Created(c echo.Context, data interface{}) error {
	return ok(c, http.StatusCreated, data, "")
}

// Accepted writes 202 for work queued in the background
func Accepted(c echo.Context, data interface{}, message string) error {
	return ok(c, http.StatusAccepted, data, message)
}

// NoContent writes 204
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Paginated writes one page of a list. data should be a non-nil slice so
// an empty page encodes as [].
func Paginated(c echo.Context, data interface{}, total int64, limit, offset int) error {
	return c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Meta:    Meta{Total: total, Limit: limit, Offset: offset},
	})
}

// Error writes err with the status its application code maps to
func Error(c echo.Context, err error) error {
	code := apperrors.GetErrorCode(err)
	return fail(c, getHTTPStatus(code), err.Error(), code)
}

// BadRequest writes 400
func BadRequest(c echo.Context, message string) error {
	return fail(c, http.StatusBadRequest, message, apperrors.CodeInvalidInput)
}

// NotFound writes 404
func NotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, apperrors.CodeNotFound)
}

// TooLarge writes 413 for request bodies over the configured limit
func TooLarge(c echo.Context, message string) error {
	return fail(c, http.StatusRequestEntityTooLarge, message, apperrors.CodePayloadTooLarge)
}

// InternalError writes 500 with a message that hides the cause
func InternalError(c echo.Context, message string) error {
	return fail(c, http.StatusInternalServerError, message, apperrors.CodeInternalError)
}

func getHTTPStatus(code string) int {
	if status, found := statusByCode[code]; found {
		return status
	}
	return http.StatusInternalServerError
}
