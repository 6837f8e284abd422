package scim

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Store error taxonomy. Handlers map these onto the SCIM error
// surface: ErrNotFound -> 404, ErrConflict -> 409, ValidationError ->
// 400, anything else -> an opaque 500 that never leaks driver detail.
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("uniqueness conflict")
)

// ValidationError is a caller-fixable request defect, detected before
// any store interaction begins.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// translateStoreError folds driver-specific failures into the
// taxonomy. Unique violations become ErrConflict and missing rows
// ErrNotFound; everything else passes through as a store failure.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

// resourceKind carries the per-kind strings used in error responses.
type resourceKind struct {
	name     string // "User" or "Group"
	identity string // the identity attribute enforced unique
}

var (
	kindUser  = resourceKind{name: "User", identity: "userName"}
	kindGroup = resourceKind{name: "Group", identity: "displayName"}
)

func writeError(c *gin.Context, status int, detail, scimType string) {
	c.JSON(status, ErrorResponse{
		Schemas:  []string{SchemaError},
		Detail:   detail,
		Status:   strconv.Itoa(status),
		ScimType: scimType,
	})
}

// respondError maps a core error onto an HTTP response for the given
// resource kind.
func respondError(c *gin.Context, err error, kind resourceKind) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusBadRequest, verr.Detail, "invalidValue")
	case errors.Is(err, ErrNotFound):
		writeError(c, http.StatusNotFound, kind.name+" not found", "")
	case errors.Is(err, ErrConflict):
		writeError(c, http.StatusConflict, kind.identity+" must be unique.", "uniqueness")
	default:
		writeError(c, http.StatusInternalServerError, "Database error", "")
	}
}
