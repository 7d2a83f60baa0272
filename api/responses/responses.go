package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto the error envelope. Untyped errors become
// INTERNAL_ERROR with the generic public message; their text never reaches the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	code := typed.Code()
	msg := code.Generic()
	if m := typed.Message(); m != "" && code.ClientFacing() {
		msg = m
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(code),
			Message: msg,
		},
	}
	if code.ShowsDetails() {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		logError(ctx, logg, err, code.Status())
	}
	writeJSON(w, code.Status(), payload)
}

func logError(ctx context.Context, logg *logger.Logger, err error, status int) {
	report := pkgerrors.Describe(err)
	fields := map[string]any{
		"error":       report.Message,
		"error_code":  report.Code,
		"http_status": status,
	}
	if status < http.StatusInternalServerError {
		logg.Debug(logg.WithFields(ctx, fields), "request.rejected")
		return
	}

	fields["error_chain"] = report.Chain
	if report.PG != nil {
		fields["pg"] = report.PG
	}
	logg.Error(logg.WithFields(ctx, fields), "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
