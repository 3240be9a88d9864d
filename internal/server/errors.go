package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	categorydomain "github.com/harborline/catalog/internal/category/domain"
	claimdomain "github.com/harborline/catalog/internal/claim/domain"
	distributordomain "github.com/harborline/catalog/internal/distributor/domain"
	productdomain "github.com/harborline/catalog/internal/product/domain"
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
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

var (
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal_error")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

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

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(err, code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests),
		errors.Is(err, rebatedomain.ErrSubmissionInFlight),
		errors.Is(err, claimdomain.ErrClaimBusy):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
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
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isProductValidationError(err),
		isCategoryValidationError(err),
		isDistributorValidationError(err),
		isRebateValidationError(err),
		isClaimValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, productdomain.ErrDuplicateCode),
		errors.Is(err, distributordomain.ErrDuplicateCode),
		errors.Is(err, categorydomain.ErrHasChildren),
		errors.Is(err, categorydomain.ErrHasProducts),
		errors.Is(err, claimdomain.ErrClaimLocked),
		errors.Is(err, claimdomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, categorydomain.ErrNotFound),
		errors.Is(err, distributordomain.ErrNotFound),
		errors.Is(err, rebatedomain.ErrNotFound),
		errors.Is(err, claimdomain.ErrNotFound),
		errors.Is(err, claimdomain.ErrAgreementNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	for _, sentinel := range []error{
		rebatedomain.ErrInvalidRange,
		rebatedomain.ErrOverlappingTiers,
		rebatedomain.ErrOverlappingAgreement,
		rebatedomain.ErrMissingAssociations,
		rebatedomain.ErrDateRangeInvalid,
		claimdomain.ErrNoTierMatched,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return strings.SplitN(err.Error(), ":", 2)[0]
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}

func validationErrorMessage(err error, code string) string {
	// Overlap errors carry the conflicting agreement's description; keep
	// it so callers can see what they collided with.
	if errors.Is(err, rebatedomain.ErrOverlappingAgreement) {
		return err.Error()
	}
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog tags request log lines with a coarse error family.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation", validationErrorCode(err)
	case isNotFoundError(err):
		return "not_found", ""
	case isConflictError(err):
		return "conflict", ""
	default:
		return "internal", ""
	}
}

func isProductValidationError(err error) bool {
	switch err {
	case productdomain.ErrInvalidCode,
		productdomain.ErrInvalidName,
		productdomain.ErrInvalidID,
		productdomain.ErrInvalidPrice,
		productdomain.ErrInvalidCategory,
		productdomain.ErrInvalidDistributor:
		return true
	default:
		return false
	}
}

func isCategoryValidationError(err error) bool {
	switch err {
	case categorydomain.ErrInvalidName,
		categorydomain.ErrInvalidLevel,
		categorydomain.ErrInvalidParent,
		categorydomain.ErrInvalidID,
		categorydomain.ErrMissingParent,
		categorydomain.ErrLevelMismatch,
		categorydomain.ErrRootHasParent:
		return true
	default:
		return false
	}
}

func isDistributorValidationError(err error) bool {
	switch err {
	case distributordomain.ErrInvalidCode,
		distributordomain.ErrInvalidName,
		distributordomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isRebateValidationError(err error) bool {
	switch {
	case errors.Is(err, rebatedomain.ErrInvalidType),
		errors.Is(err, rebatedomain.ErrInvalidParty),
		errors.Is(err, rebatedomain.ErrInvalidBasis),
		errors.Is(err, rebatedomain.ErrInvalidRateType),
		errors.Is(err, rebatedomain.ErrInvalidFrequency),
		errors.Is(err, rebatedomain.ErrInvalidUnit),
		errors.Is(err, rebatedomain.ErrInvalidID),
		errors.Is(err, rebatedomain.ErrDateRangeInvalid),
		errors.Is(err, rebatedomain.ErrInvalidRange),
		errors.Is(err, rebatedomain.ErrOverlappingTiers),
		errors.Is(err, rebatedomain.ErrOverlappingAgreement),
		errors.Is(err, rebatedomain.ErrMissingAssociations):
		return true
	default:
		return false
	}
}

func isClaimValidationError(err error) bool {
	switch {
	case errors.Is(err, claimdomain.ErrInvalidID),
		errors.Is(err, claimdomain.ErrInvalidPeriod),
		errors.Is(err, claimdomain.ErrInvalidStatus),
		errors.Is(err, claimdomain.ErrAgreementInactive),
		errors.Is(err, claimdomain.ErrNoTierMatched):
		return true
	default:
		return false
	}
}
