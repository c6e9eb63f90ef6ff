package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/handlers/render"
	"github.com/classmarket/wallet/internal/handlers/userctx"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/repository"
)

func handleWalletSummary(ws walletService, l logger.Logger) http.Handler {
	type response struct {
		Available decimal.Decimal `json:"available"`
		Pending   decimal.Decimal `json:"pending"`
		Currency  string          `json:"currency"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		summary, err := ws.GetSummary(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to get wallet summary", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{
			Available: summary.Available,
			Pending:   summary.Pending,
			Currency:  summary.Currency,
		})
	})
}

func handleListTransactions(ws walletService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		query := r.URL.Query()
		filter := repository.TransactionFilter{
			Type:   query.Get("type"),
			Source: query.Get("source"),
		}
		filter.Limit, _ = strconv.Atoi(query.Get("limit"))
		filter.Offset, _ = strconv.Atoi(query.Get("offset"))

		transactions, err := ws.ListTransactions(r.Context(), user.ID, filter)
		if err != nil {
			l.Error("Failed to list transactions", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]transactionJSON, 0, len(transactions))
		for _, tr := range transactions {
			out = append(out, toTransactionJSON(tr))
		}
		render.JSON(w, out)
	})
}

func handleRequestPayout(ws walletService, l logger.Logger) http.Handler {
	type request struct {
		Amount   decimal.Decimal `json:"amount"`
		MethodID string          `json:"method_id,omitempty"`
		Note     string          `json:"note,omitempty" validate:"max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		var methodID *uuid.UUID
		if req.MethodID != "" {
			id, err := uuid.Parse(req.MethodID)
			if err != nil {
				render.ServiceError(w, "Invalid method id", http.StatusBadRequest)
				return
			}
			methodID = &id
		}

		payout, err := ws.RequestPayout(r.Context(), user.ID, req.Amount, methodID, req.Note)

		switch {
		case err == nil:
			render.JSONWithStatus(w, toPayoutJSON(payout), http.StatusCreated)
		case errors.Is(err, apperrors.ErrInvalidAmount):
			render.ServiceError(w, "Amount must be positive", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrBalanceInsufficient), errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Amount exceeds available balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrPayoutMethodNotFound):
			render.ServiceError(w, "Payout method not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrPayoutMethodInactive):
			render.ServiceError(w, "Payout method is deactivated", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to request payout", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListPayouts(ws walletService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		payouts, err := ws.ListPayouts(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list payouts", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]payoutJSON, 0, len(payouts))
		for _, pr := range payouts {
			out = append(out, toPayoutJSON(pr))
		}
		render.JSON(w, out)
	})
}
