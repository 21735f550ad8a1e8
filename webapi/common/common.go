// Package common holds the response envelope, problem details and request
// binding shared by the HTTP handlers.
package common

import (
	"errors"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/middleware"
	"github.com/amirasaad/vatm/pkg/service/auth"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

var validate = validator.New()

// SuccessResponseJSON writes the success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ProblemDetailsJSON writes an RFC 9457 problem. The status is derived from err
// unless an int is passed in args; a string in args replaces the detail.
// Details of server errors are never exposed.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	status := fiber.StatusBadRequest
	pd := ProblemDetails{Type: "about:blank", Title: title, Instance: c.OriginalURL()}
	if err != nil {
		status = ErrorToStatusCode(err)
		pd.Detail = err.Error()
	}
	for _, a := range args {
		switch v := a.(type) {
		case int:
			status = v
		case string:
			pd.Detail = v
		default:
			pd.Errors = v
		}
	}
	if status >= fiber.StatusInternalServerError && err != nil {
		pd.Detail = domain.ErrStorageFault.Error()
	}
	pd.Status = status
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// ErrorToStatusCode maps errors to HTTP status codes: not found → 404,
// validation and business conflicts → 400, storage faults → 500. Duplicate
// accounts, missing sessions and foreign accounts get 409, 401 and 403.
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountExists):
		return fiber.StatusConflict
	case errors.Is(err, auth.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthorizedAccess):
		return fiber.StatusForbidden
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindValidation, domain.KindConflict:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// Returns a pointer to the struct (populated), or writes an error response and returns nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", nil, err.Error())
	}
	if err := validate.Struct(input); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make(map[string]string, len(ve))
			for _, fe := range ve {
				fields[fe.Field()] = fe.Tag()
			}
			return nil, ProblemDetailsJSON(c, "Validation failed", nil, "Request validation failed", fields)
		}
		return nil, ProblemDetailsJSON(c, "Validation failed", nil, err.Error())
	}
	return &input, nil
}

// RequireOwner rejects the request unless the session token belongs to the
// :number route parameter. Mount it ahead of the idempotency handler.
func RequireOwner(authSvc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := c.Locals(middleware.UserKey).(*jwt.Token)
		if err := authSvc.Authorize(token, c.Params("number")); err != nil {
			title := "Forbidden"
			if errors.Is(err, auth.ErrUnauthenticated) {
				title = "Unauthorized"
			}
			return ProblemDetailsJSON(c, title, err)
		}
		return c.Next()
	}
}
