package web

// errors.go translates domain errors into HTTP responses. Business
// errors carry their own code and Vietnamese message; anything
// unrecognized is logged in full and returned as a generic internal
// error so no driver or SQL detail leaks to clients.

import (
	"net/http"

	"github.com/dvmchung/crm-backend/internal/apperr"
	"github.com/dvmchung/crm-backend/internal/logging"
)

// respondError maps err to a status code and writes the error envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.From(err)
	if !ok {
		appErr = apperr.NewInternal(err)
	}

	status := statusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"error", err.Error(),
		)
	} else {
		logging.FromContext(r.Context()).Warn("request rejected",
			"path", r.URL.Path,
			"method", r.Method,
			"code", appErr.Code,
		)
	}

	respondEnvelope(w, status, envelope{Error: &errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

func statusFor(code string) int {
	switch code {
	case apperr.CodeNotFound, apperr.CodeCustomerNotFound:
		return http.StatusNotFound
	case apperr.CodeValidation,
		apperr.CodeDuplicateData,
		apperr.CodeDuplicateEmail,
		apperr.CodeDuplicatePhone,
		apperr.CodeDuplicateCode,
		apperr.CodeUnsupportedFileFormat,
		apperr.CodeFileSizeExceeded,
		apperr.CodeEmptyFile,
		apperr.CodeMissingColumns:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
