package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	applicationdomain "github.com/leaseledger/leaseledger/internal/application/domain"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	leasedomain "github.com/leaseledger/leaseledger/internal/lease/domain"
	meterdomain "github.com/leaseledger/leaseledger/internal/meter/domain"
	paymentdomain "github.com/leaseledger/leaseledger/internal/payment/domain"
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
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrGateway),
		errors.Is(err, leasedomain.ErrDocumentStore):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, applicationdomain.ErrInvalidTenant),
		errors.Is(err, applicationdomain.ErrInvalidUnit),
		errors.Is(err, leasedomain.ErrInvalidUnit),
		errors.Is(err, leasedomain.ErrInvalidDocument),
		errors.Is(err, leasedomain.ErrInvalidDateRange),
		errors.Is(err, paymentdomain.ErrInvalidAgreement),
		errors.Is(err, paymentdomain.ErrInvalidReference),
		errors.Is(err, paymentdomain.ErrInvalidItems),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, billingdomain.ErrInvalidUnit),
		errors.Is(err, billingdomain.ErrInvalidBilling),
		errors.Is(err, billingdomain.ErrInvalidAmount),
		errors.Is(err, meterdomain.ErrInvalidUnit),
		errors.Is(err, meterdomain.ErrInvalidUtility),
		errors.Is(err, meterdomain.ErrInvalidReading):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, applicationdomain.ErrNotFound),
		errors.Is(err, applicationdomain.ErrNoApproved),
		errors.Is(err, leasedomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrAgreementNotFound),
		errors.Is(err, billingdomain.ErrNotFound),
		errors.Is(err, billingdomain.ErrUnitNotFound),
		errors.Is(err, meterdomain.ErrUnitNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, leasedomain.ErrLeaseExists),
		errors.Is(err, leasedomain.ErrNotActive),
		errors.Is(err, leasedomain.ErrSettled),
		errors.Is(err, paymentdomain.ErrAmountMismatch),
		errors.Is(err, paymentdomain.ErrAlreadyConfirmed),
		errors.Is(err, billingdomain.ErrAmountMismatch),
		errors.Is(err, billingdomain.ErrAlreadyPaid),
		errors.Is(err, meterdomain.ErrReadingRegression):
		return true
	default:
		return false
	}
}
