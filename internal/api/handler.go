package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"RateSentinel/internal/model"
	"RateSentinel/internal/rates"
)

// RateQuerier is the query surface the handlers depend on.
type RateQuerier interface {
	LatestRate(ctx context.Context, cur model.Currency) (model.RateSnapshot, error)
	HourlyDynamics(ctx context.Context, cur model.Currency) (model.DynamicDetails, error)
	DailyDynamics(ctx context.Context, cur model.Currency) ([]model.DynamicDetails, error)
}

type Handler struct {
	Rates RateQuerier
}

func NewHandler(q RateQuerier) *Handler {
	return &Handler{Rates: q}
}

func invalidCurrencyMessage() string {
	names := make([]string, len(model.QueryableCurrencies))
	for i, c := range model.QueryableCurrencies {
		names[i] = string(c)
	}
	return "Invalid currency. Allowed values: " + strings.Join(names, ", ")
}

// currency reads and validates the currency query parameter, writing the
// 400 response itself when it is missing or not allowed.
func (h *Handler) currency(w http.ResponseWriter, r *http.Request) (model.Currency, bool) {
	cur, err := model.ParseQueryCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: CodeNoData, Message: invalidCurrencyMessage()})
		return "", false
	}
	return cur, true
}

// fail maps query errors to responses. Missing data is a 200 with an error payload.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, cur model.Currency, err error) {
	var nf *rates.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusOK, ErrorResponse{Code: CodeNoData, Message: nf.Error()})
	case errors.Is(err, model.ErrUnsupportedCurrency):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: CodeNoData, Message: invalidCurrencyMessage()})
	default:
		slog.Error("query failed", "path", r.URL.Path, "currency", cur, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "Internal server error"})
	}
}

func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.currency(w, r)
	if !ok {
		return
	}
	snap, err := h.Rates.LatestRate(r.Context(), cur)
	if err != nil {
		h.fail(w, r, cur, err)
		return
	}
	writeJSON(w, http.StatusOK, newRateResponse(snap))
}

func (h *Handler) HourlyDifference(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.currency(w, r)
	if !ok {
		return
	}
	d, err := h.Rates.HourlyDynamics(r.Context(), cur)
	if err != nil {
		h.fail(w, r, cur, err)
		return
	}
	writeJSON(w, http.StatusOK, newDynamicsResponse(d))
}

func (h *Handler) DailyDynamics(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.currency(w, r)
	if !ok {
		return
	}
	list, err := h.Rates.DailyDynamics(r.Context(), cur)
	if err != nil {
		h.fail(w, r, cur, err)
		return
	}
	out := make([]DynamicsResponse, len(list))
	for i, d := range list {
		out[i] = newDynamicsResponse(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
