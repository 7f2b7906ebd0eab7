package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Eyad010/postfeed/internal/common"
)

const maxJSONBody = 1 << 20

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeData(w http.ResponseWriter, status int, data envelope) {
	writeJSON(w, status, envelope{"status": "success", "data": data})
}

// writeList writes a collection with its length under results.
func writeList[T any](w http.ResponseWriter, key string, items []T) {
	writeJSON(w, http.StatusOK, envelope{
		"status":  "success",
		"results": len(items),
		"data":    envelope{key: items},
	})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{"status": "success", "message": message})
}

// errorStatus maps an error kind to an HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorConflict):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {status, message}. Only classified errors expose
// their message; anything else is logged and reported as a generic failure.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)

	var ce *common.Error
	message := "Something went wrong"
	if errors.As(err, &ce) {
		message = ce.Message
	}
	if ce == nil || code >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	status := "fail"
	if code >= http.StatusInternalServerError {
		status = "error"
	}
	writeJSON(w, code, envelope{"status": status, "message": message})
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return common.NewError(common.ErrorValidation, "Invalid request body")
	}
	return nil
}
