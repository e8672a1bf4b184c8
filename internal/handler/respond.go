package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/dormduty/dormduty/internal/workflow"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeWorkflowError maps the workflow error taxonomy onto HTTP statuses.
// Anything untyped is a 500 with a generic body.
func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case workflow.IsValidation(err):
		writeErr(w, http.StatusBadRequest, err.Error())
	case workflow.IsPermission(err):
		writeErr(w, http.StatusForbidden, err.Error())
	case workflow.IsNotFound(err):
		writeErr(w, http.StatusNotFound, err.Error())
	case workflow.IsConflict(err):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parsePathInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// decodeValid decodes the JSON body into v and runs struct validation.
func decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}
