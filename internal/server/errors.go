package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-reviewer/internal/ingestion"
	"github.com/jonathan/resume-reviewer/internal/roleindex"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable indicates the knowledge base is not loaded
type ErrUnavailable struct {
	Message string
}

func (e *ErrUnavailable) Error() string {
	return e.Message
}

// ErrPayloadTooLarge indicates a request body over the size limit
type ErrPayloadTooLarge struct {
	Limit int64
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrUnavailable:
		return http.StatusServiceUnavailable
	case *ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case *ingestion.UnsupportedFormatError:
		return http.StatusUnsupportedMediaType
	case *ingestion.ExtractionError:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, roleindex.ErrIndexNotLoaded) || errors.Is(err, roleindex.ErrClassifierNotLoaded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
