package platformfake

import (
	"encoding/json"
	"net/http"

	perrors "github.com/jrsteele09/go-platform-client/internal/errors"
	"github.com/jrsteele09/go-platform-client/model"
)

func writeData(w http.ResponseWriter, status int, data any) {
	env := model.Envelope{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}
		env.Data = raw
	}
	writeEnvelope(w, status, env)
}

func writeError(w http.ResponseWriter, status int, code, message string, details ...perrors.FieldError) {
	writeEnvelope(w, status, model.Envelope{
		Success: false,
		Error:   &model.ErrorInfo{Code: code, Message: message, Details: details},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env model.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func decodeBody(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
