package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/classpoint/classpoint/internal/apperr"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto its status and a structured {"error": ...}
// body. Nothing propagates to the transport layer unhandled.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusCode(err), map[string]string{"error": err.Error()})
}

func writeErrMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// checkStruct validates a decoded request body. Field-level detail goes
// back to the client so forms can highlight the offending input.
func checkStruct(w http.ResponseWriter, s interface{}) bool {
	err := validate.Struct(s)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, apperr.FieldError{
				Field:   fe.Field(),
				Message: "failed rule: " + fe.Tag(),
			})
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"details": details,
		})
		return false
	}
	writeErrMsg(w, http.StatusBadRequest, err.Error())
	return false
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.BadRequest("bad json: " + err.Error())
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
