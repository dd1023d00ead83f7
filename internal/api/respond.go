package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"task_wallet/internal/apperr"     // Typed errors
	"task_wallet/internal/middleware" // Request scoped logging
	"task_wallet/internal/utils"      // Validation messages

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/gin-gonic/gin/binding"       // Request binding
	"github.com/go-playground/validator/v10" // Binding tag rules
	"github.com/shopspring/decimal"          // Money JSON encoding
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true // Render money as JSON numbers
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(utils.JSONFieldName) // Report fields by JSON name
	}
}

// statusFor maps an error code to its HTTP status
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidInput, apperr.CodePreconditionFailed:
		return http.StatusBadRequest
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err. Internal causes are logged and never returned.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal("unclassified", err)
	}
	status := statusFor(appErr.Code)
	if status == http.StatusInternalServerError {
		middleware.Log(c).WithError(err).WithField("details", appErr.Details).Error("Request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error", "code": apperr.CodeInternal})
		return
	}
	body := gin.H{"error": appErr.Message, "code": appErr.Code} // Same shape as the middleware errors
	if appErr.Reason != "" {
		body["reason"] = appErr.Reason
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the body into dest and checks its binding tags. A failed
// rule names the offending field; anything else is a malformed body.
func bindJSON(c *gin.Context, dest any) error {
	err := c.ShouldBindJSON(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return utils.ValidationError(fieldErrs)
	}
	return apperr.InvalidInput("body", "Invalid request")
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.InvalidInput(name, "Invalid id")
	}
	return uint(v), nil
}

// pagination reads page and page_size with the defaults used everywhere
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}

// totalPages rounds up
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}
