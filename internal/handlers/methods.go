package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/handlers/render"
	"github.com/classmarket/wallet/internal/handlers/userctx"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/models"
)

type methodRequest struct {
	Type    string `json:"type" validate:"required,oneof=bank_transfer e_wallet other"`
	Label   string `json:"label" validate:"required,max=100"`
	Details struct {
		BankName      string `json:"bank_name,omitempty"`
		AccountName   string `json:"account_name,omitempty"`
		AccountNumber string `json:"account_number,omitempty"`
		Provider      string `json:"provider,omitempty"`
		WalletID      string `json:"wallet_id,omitempty"`
	} `json:"details"`
	IsDefault bool `json:"is_default,omitempty"`
}

func (req methodRequest) toModel() models.PayoutMethod {
	return models.PayoutMethod{
		Type:  req.Type,
		Label: req.Label,
		Details: models.PayoutMethodDetails{
			BankName:      req.Details.BankName,
			AccountName:   req.Details.AccountName,
			AccountNumber: req.Details.AccountNumber,
			Provider:      req.Details.Provider,
			WalletID:      req.Details.WalletID,
		},
		IsDefault: req.IsDefault,
	}
}

func handleCreateMethod(ms methodService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[methodRequest](w, r)
		if err != nil {
			return
		}

		method, err := ms.CreateMethod(r.Context(), user.ID, req.toModel())
		if err != nil {
			l.Error("Failed to create payout method", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSONWithStatus(w, toMethodJSON(method), http.StatusCreated)
	})
}

func handleListMethods(ms methodService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		activeOnly := r.URL.Query().Get("all") == ""

		methods, err := ms.ListMethods(r.Context(), user.ID, activeOnly)
		if err != nil {
			l.Error("Failed to list payout methods", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]methodJSON, 0, len(methods))
		for _, m := range methods {
			out = append(out, toMethodJSON(m))
		}
		render.JSON(w, out)
	})
}

func handleUpdateMethod(ms methodService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		methodID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid method id", http.StatusBadRequest)
			return
		}

		req, err := render.BindAndValidate[methodRequest](w, r)
		if err != nil {
			return
		}

		method := req.toModel()
		method.ID = methodID

		updated, err := ms.UpdateMethod(r.Context(), user.ID, method)

		switch {
		case err == nil:
			render.JSON(w, toMethodJSON(updated))
		case errors.Is(err, apperrors.ErrPayoutMethodNotFound):
			render.ServiceError(w, "Payout method not found", http.StatusNotFound)
		default:
			l.Error("Failed to update payout method", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeactivateMethod(ms methodService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		methodID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid method id", http.StatusBadRequest)
			return
		}

		err = ms.DeactivateMethod(r.Context(), user.ID, methodID)

		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, apperrors.ErrPayoutMethodNotFound):
			render.ServiceError(w, "Payout method not found", http.StatusNotFound)
		default:
			l.Error("Failed to deactivate payout method", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleSetDefaultMethod(ms methodService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		methodID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid method id", http.StatusBadRequest)
			return
		}

		err = ms.SetDefaultMethod(r.Context(), user.ID, methodID)

		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, apperrors.ErrPayoutMethodNotFound):
			render.ServiceError(w, "Payout method not found", http.StatusNotFound)
		default:
			l.Error("Failed to set default payout method", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
