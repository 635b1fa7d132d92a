package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/apperr"
)

const (
	msgInternalError = "internal server error"
	msgInvalidBody   = "invalid request body"
	maxBodyBytes     = 1 << 20
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError writes the status carried by an apperr.Error.
// Anything else is logged and hidden behind a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		respondJSON(w, e.HTTPStatus(), errorResponse{Error: e.Message})
		return
	}

	logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
}

// decodeJSON читает тело запроса в dst, неизвестные поля отклоняются
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest(msgInvalidBody)
		}
		return apperr.BadRequest(fmt.Sprintf("%s: %v", msgInvalidBody, err))
	}
	return nil
}
