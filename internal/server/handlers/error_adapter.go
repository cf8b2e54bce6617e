package handlers

import (
	"net/http"

	apperrors "github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/errors"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/server/middleware"
)

// HTTPErrorResponder writes an error response for err. Registering a
// custom responder lets embedding services reshape API errors without
// forking the handlers.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder HTTPErrorResponder = defaultErrorResponder

// SetHTTPErrorResponder installs a custom error responder. Passing nil
// restores the default.
func SetHTTPErrorResponder(responder HTTPErrorResponder) {
	if responder == nil {
		httpErrorResponder = defaultErrorResponder
		return
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultErrorResponder
}

// respondWithError routes err through the installed responder.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.WriteErrorDetail(w, http.StatusInternalServerError, apperrors.ErrorDetail{
		Code:      apperrors.CodeInternal,
		Message:   err.Error(),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}
