package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Canonical error strings whose exact wording is part of the API contract.
const (
	// MsgSignInToSee invites anonymous viewers to sign in; used only when the
	// post is protected but not private.
	MsgSignInToSee = "Please sign in to view this post"
	// MsgCannotSeePost is the flat denial for private and ban-based refusals.
	MsgCannotSeePost = "You can not see this post"
	// MsgBannedCommentAuthor denies a comment whose author the viewer banned.
	MsgBannedCommentAuthor = "You have banned the author of this comment"
	// MsgPostNotFound covers both absent posts and posts by gone accounts, so
	// callers cannot distinguish suspension from absence.
	MsgPostNotFound = "Can not find post"
	// MsgCommentNotFound covers absent comments and comments by gone accounts.
	MsgCommentNotFound = "Can not find comment"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Err     string `json:"err"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports an absent entity. Entities authored by gone
// accounts produce the same error by design.
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
	}
}

// NewForbiddenError reports a visibility or permission denial.
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// NewValidationError reports malformed caller input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

// NewUnauthorizedError reports a missing or invalid authentication.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// NewServerMisconfigurationError reports a programmer error in route wiring,
// such as a gate referencing a route parameter that was never supplied. It is
// always fatal for the request and never retried.
func NewServerMisconfigurationError(message string) *AppError {
	return &AppError{
		Code:    "SERVER_MISCONFIGURATION",
		Message: message,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Err:     err,
	}
}

// IsNotFound reports whether err is a NOT_FOUND application error.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == "NOT_FOUND"
}

// IsForbidden reports whether err is a FORBIDDEN application error.
func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == "FORBIDDEN"
}

// StatusFor maps an error to the HTTP status it should surface as.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "FORBIDDEN":
		return fiber.StatusForbidden
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes a standardized error response.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Err:  appErr.Message,
			Code: appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Err: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
