package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/handlers/render"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/models"
)

// SignatureHeader carries the gateway's hex HMAC-SHA256 of the raw body
const SignatureHeader = "X-Payment-Signature"

const maxWebhookBody = 1 << 20

// handlePaymentWebhook accepts the gateway's "sale completed" callback
// and credits the teacher's wallet. The payment itself was validated
// and captured by the gateway; only the signature is checked here.
func handlePaymentWebhook(ws walletService, secret string, l logger.Logger) http.Handler {
	type request struct {
		PaymentID uuid.UUID       `json:"payment_id" validate:"required"`
		TeacherID uuid.UUID       `json:"teacher_id" validate:"required"`
		CourseID  uuid.UUID       `json:"course_id"`
		Amount    decimal.Decimal `json:"amount"`
		Note      string          `json:"note,omitempty"`
	}

	type response struct {
		TransactionID string `json:"transaction_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			render.ServiceError(w, "Failed to read body", http.StatusBadRequest)
			return
		}

		if !validSignature(body, r.Header.Get(SignatureHeader), secret) {
			render.ServiceError(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		req, err := render.BindBytes[request](w, body)
		if err != nil {
			return
		}

		created, err := ws.Credit(r.Context(), req.TeacherID, req.Amount, models.SourceCourseSale, models.SaleMetadata{
			PaymentID: req.PaymentID,
			CourseID:  req.CourseID,
			Note:      req.Note,
		})

		switch {
		case err == nil:
			render.JSON(w, response{TransactionID: created.ID.String()})
		case errors.Is(err, apperrors.ErrInvalidAmount):
			render.ServiceError(w, "Amount must be positive", http.StatusBadRequest)
		default:
			l.Error("Failed to credit wallet from webhook", "payment_id", req.PaymentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func validSignature(body []byte, signature string, secret string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
