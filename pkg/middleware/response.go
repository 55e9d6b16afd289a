package middleware

import (
	"net/http"

	apperrors "intake/pkg/errors"
	httputil "intake/pkg/http"
)

// reject writes the same error envelope the handlers use, so clients see one
// error shape whether a request was stopped here or in the service.
func reject(w http.ResponseWriter, status int, code, message string) {
	_ = httputil.WriteJSON(w, status, httputil.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func rejectInternal(w http.ResponseWriter) {
	reject(w, http.StatusInternalServerError, apperrors.CodeInternal, "Internal server error")
}
