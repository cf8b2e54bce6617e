// Package middleware provides the HTTP middleware chain for the API
// server: request id propagation and panic recovery with the standard
// error envelope.
package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/errors"
)

// ErrorResponse is the JSON body written for recovered panics. It is
// the shared API error envelope.
type ErrorResponse = apperrors.HTTPErrorResponse

// logger receives recovered panic reports. No-op until SetLogger.
var logger = zap.NewNop()

// SetLogger installs the logger used for recovered panics.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Recovery catches panics from downstream handlers and converts them
// into a 500 response with an INTERNAL_ERROR envelope. The panic value
// is logged, never echoed beyond the message text.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			reqID := GetRequestID(r.Context())
			logger.Error("handler panic",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.String("request_id", reqID))

			apperrors.WriteErrorDetail(w, http.StatusInternalServerError, apperrors.ErrorDetail{
				Code:      apperrors.CodeInternal,
				Message:   fmt.Sprintf("panic: %v", rec),
				RequestID: reqID,
			})
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is an alias for Recovery kept for callers that read
// better with this name in the middleware chain.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}
