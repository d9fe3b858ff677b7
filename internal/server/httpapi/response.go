package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/archive"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, common.ErrorStoreUnavailable), errors.Is(err, archive.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondErr writes err as JSON. Messages of 5xx errors are logged and
// replaced so store details never reach the client.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatusFromError(err)

	resp := ErrorResponse{Error: err.Error()}
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		resp = ErrorResponse{Error: common.ErrorValidation.Error(), Fields: verr.Fields}
	}

	if code >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), s.logger).Error(r.Context(), "request failed", "error", err)
		switch code {
		case http.StatusServiceUnavailable:
			resp.Error = "service unavailable"
			if errors.Is(err, archive.ErrDisabled) {
				resp.Error = err.Error()
			}
		case http.StatusGatewayTimeout:
			resp.Error = "request timed out"
		default:
			resp.Error = common.ErrorInternal.Error()
		}
	}

	RespondWithJSON(w, code, resp)
}

// decodeJSON reads a single JSON object into dst. A value of the wrong
// type is reported against its field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	var ute *json.UnmarshalTypeError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &ute) && ute.Field != "":
		return common.NewValidationError(ute.Field, typeMessage(ute.Type))
	case errors.As(err, &mbe):
		return common.NewValidationError("body", "is too large")
	}
	return common.NewValidationError("body", "is not valid JSON")
}

func typeMessage(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "has the wrong type"
	}
	if t == reflect.TypeOf(models.Coordinate(0)) {
		return "is not a valid coordinate"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "must be an integer"
	case reflect.String:
		return "must be a string"
	case reflect.Bool:
		return "must be true or false"
	}
	return "has the wrong type"
}
