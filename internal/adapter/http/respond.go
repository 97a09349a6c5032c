package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/weathernft-service/internal/aggregation"
	"github.com/couchcryptid/weathernft-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every /api response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// badRequestError marks a request the handler could not parse.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func (s *Server) ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// fail maps err onto a status code. Unexpected errors are logged and their
// text is not returned to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func statusFor(err error) int {
	var (
		badReq     *badRequestError
		invalid    *domain.ValidationError
		notFound   *domain.NotFoundError
		rejected   *domain.CaptureRejectedError
		notAllowed *domain.BoostNotAllowedError
		unknown    *domain.UnknownTierError
		humidity   *domain.InvalidHumidityError
		upstream   *aggregation.UpstreamUnavailableError
	)
	switch {
	case errors.As(err, &badReq), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &rejected), errors.As(err, &notAllowed),
		errors.Is(err, domain.ErrRetrainInProgress), errors.Is(err, domain.ErrJobFinished),
		errors.Is(err, domain.ErrNotTokenOwner):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoAlgorithmAvailable), errors.As(err, &unknown),
		errors.As(err, &humidity), errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched
// unless required is set.
func decodeBody(r *http.Request, v any, required bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && !required {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("malformed request body: %v", err)
	}
	return nil
}
