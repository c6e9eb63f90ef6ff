package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/handlers/render"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/models"
)

func handleAdminListPayouts(as adminService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			status = models.PayoutStatusRequested
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		payouts, err := as.ListPayoutsByStatus(r.Context(), status, limit)
		if err != nil {
			l.Error("Failed to list payouts for admin", "error", err)
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

func handleAdminMarkProcessing(as adminService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid payout request id", http.StatusBadRequest)
			return
		}

		payout, err := as.MarkProcessing(r.Context(), requestID)

		switch {
		case err == nil:
			render.JSON(w, toPayoutJSON(payout))
		case errors.Is(err, apperrors.ErrPayoutRequestNotFound):
			render.ServiceError(w, "Payout request not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			render.ServiceError(w, "Payout request is not in requested state", http.StatusConflict)
		default:
			l.Error("Failed to mark payout processing", "request_id", requestID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminResolvePayout(as adminService, l logger.Logger) http.Handler {
	type request struct {
		Outcome     string `json:"outcome" validate:"required,oneof=completed rejected"`
		ExternalRef string `json:"external_ref,omitempty" validate:"max=200"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid payout request id", http.StatusBadRequest)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		payout, err := as.ResolvePayout(r.Context(), requestID, req.Outcome, req.ExternalRef)

		switch {
		case err == nil:
			render.JSON(w, toPayoutJSON(payout))
		case errors.Is(err, apperrors.ErrPayoutRequestNotFound):
			render.ServiceError(w, "Payout request not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			render.ServiceError(w, "Payout request already resolved", http.StatusConflict)
		default:
			l.Error("Failed to resolve payout", "request_id", requestID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminVerifyMethod(as adminService, l logger.Logger) http.Handler {
	type request struct {
		Verified bool `json:"verified"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methodID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid method id", http.StatusBadRequest)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		method, err := as.VerifyMethod(r.Context(), methodID, req.Verified)

		switch {
		case err == nil:
			render.JSON(w, toMethodJSON(method))
		case errors.Is(err, apperrors.ErrPayoutMethodNotFound):
			render.ServiceError(w, "Payout method not found", http.StatusNotFound)
		default:
			l.Error("Failed to verify payout method", "method_id", methodID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminVerifyLedger(as adminService, l logger.Logger) http.Handler {
	type response struct {
		Available     decimal.Decimal `json:"available"`
		Pending       decimal.Decimal `json:"pending"`
		LedgerBalance decimal.Decimal `json:"ledger_balance"`
		OpenPayouts   decimal.Decimal `json:"open_payouts"`
		Consistent    bool            `json:"consistent"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("userID"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		report, err := as.VerifyLedger(r.Context(), userID)

		switch {
		case err == nil:
			render.JSON(w, response{
				Available:     report.Available,
				Pending:       report.Pending,
				LedgerBalance: report.LedgerBalance,
				OpenPayouts:   report.OpenPayouts,
				Consistent:    report.Consistent(),
			})
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Wallet not found", http.StatusNotFound)
		default:
			l.Error("Failed to verify ledger", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
