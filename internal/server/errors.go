package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	evaluationdomain "github.com/smallbiznis/beacon/internal/evaluation/domain"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if dErr := asDefinitionError(err); dErr != nil {
		fieldErrs := make([]ValidationError, 0, len(dErr.Reasons))
		for _, reason := range dErr.Reasons {
			fieldErrs = append(fieldErrs, ValidationError{
				Field:   "definition",
				Code:    "invalid_definition",
				Message: reason,
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fieldErrs,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same taxonomy mapError
// uses for responses.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case asValidationErrors(err) != nil, asDefinitionError(err) != nil, isValidationError(err):
		return "validation_error", "invalid_request"
	case isConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	default:
		return "internal_error", "internal_error"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asDefinitionError(err error) *groupdomain.DefinitionError {
	var dErr *groupdomain.DefinitionError
	if errors.As(err, &dErr) && dErr != nil {
		return dErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, flagdomain.ErrInvalidName),
		errors.Is(err, flagdomain.ErrInvalidVariants),
		errors.Is(err, flagdomain.ErrInvalidID),
		errors.Is(err, ruledomain.ErrInvalidID),
		errors.Is(err, ruledomain.ErrInvalidType),
		errors.Is(err, ruledomain.ErrInvalidPercentage),
		errors.Is(err, ruledomain.ErrUnknownGroup),
		errors.Is(err, groupdomain.ErrInvalidID),
		errors.Is(err, groupdomain.ErrInvalidName):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, flagdomain.ErrNameTaken),
		errors.Is(err, groupdomain.ErrNameTaken),
		errors.Is(err, groupdomain.ErrInUse):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, flagdomain.ErrNotFound),
		errors.Is(err, ruledomain.ErrNotFound),
		errors.Is(err, groupdomain.ErrNotFound),
		errors.Is(err, evaluationdomain.ErrFlagNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
