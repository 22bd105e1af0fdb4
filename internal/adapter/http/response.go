package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain failures onto HTTP status codes. Unknown errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNotApproved):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrAlreadyFinalized),
		errors.Is(err, domain.ErrInsufficientApprovals):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientContribution), errors.Is(err, domain.ErrTransferFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Domain failures are returned
// verbatim; anything else is logged and hidden behind a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeErrorMessage(w, status, "internal error")
		return
	}
	writeErrorMessage(w, status, err.Error())
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// encoding should rarely fail and the status is already sent
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func campaignID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid campaign id")
	}
	return id, nil
}

func requestIndex(r *http.Request) (int, error) {
	idx, err := pathIndex(r, "index")
	if err != nil {
		return 0, errors.New("invalid request index")
	}
	return idx, nil
}

// pathIndex parses a non-negative integer URL parameter.
func pathIndex(r *http.Request, name string) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		return 0, fmt.Errorf("negative index %d", idx)
	}
	return idx, nil
}
