package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/handlers/middleware"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/metrics"
	"github.com/classmarket/wallet/internal/models"
	"github.com/classmarket/wallet/internal/repository"
	walletsvc "github.com/classmarket/wallet/internal/service/wallet"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Config struct {
	// Shared secret the payment gateway signs webhook bodies with
	WebhookSecret string
}

func NewRouter(
	ws walletService,
	ms methodService,
	as adminService,
	auth authService,
	c Config,
	m *metrics.Metrics,
	l logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(auth)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return authMiddleware(middleware.AdminOnly()(h))
	}

	api := http.NewServeMux()

	api.Handle("GET /wallet", withAuth(handleWalletSummary(ws, l)))
	api.Handle("GET /wallet/transactions", withAuth(handleListTransactions(ws, l)))
	api.Handle("POST /wallet/payouts", withAuth(handleRequestPayout(ws, l)))
	api.Handle("GET /wallet/payouts", withAuth(handleListPayouts(ws, l)))

	api.Handle("POST /wallet/methods", withAuth(handleCreateMethod(ms, l)))
	api.Handle("GET /wallet/methods", withAuth(handleListMethods(ms, l)))
	api.Handle("PATCH /wallet/methods/{id}", withAuth(handleUpdateMethod(ms, l)))
	api.Handle("DELETE /wallet/methods/{id}", withAuth(handleDeactivateMethod(ms, l)))
	api.Handle("POST /wallet/methods/{id}/default", withAuth(handleSetDefaultMethod(ms, l)))

	api.Handle("GET /admin/payouts", withAdmin(handleAdminListPayouts(as, l)))
	api.Handle("POST /admin/payouts/{id}/processing", withAdmin(handleAdminMarkProcessing(as, l)))
	api.Handle("POST /admin/payouts/{id}/resolve", withAdmin(handleAdminResolvePayout(as, l)))
	api.Handle("POST /admin/methods/{id}/verify", withAdmin(handleAdminVerifyMethod(as, l)))
	api.Handle("GET /admin/wallets/{userID}/ledger", withAdmin(handleAdminVerifyLedger(as, l)))

	api.Handle("POST /webhooks/payment", handlePaymentWebhook(ws, c.WebhookSecret, l))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("GET /metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	handler := chain(root,
		middleware.LoggerMiddleware(l),
		middleware.MetricsMiddleware(m.RequestDuration),
	)

	return handler
}

type walletService interface {
	// Credit the owner's wallet and append the paired credit transaction
	// Has to return apperrors.ErrInvalidAmount on non-positive amounts
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, source string, metadata models.Metadata) (models.Transaction, error)

	// Move amount from available to pending and record the request
	// Has to return apperrors.ErrBalanceInsufficient when amount exceeds
	// the available balance
	RequestPayout(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, methodID *uuid.UUID, note string) (models.PayoutRequest, error)

	GetSummary(ctx context.Context, ownerID uuid.UUID) (walletsvc.Summary, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID, filter repository.TransactionFilter) ([]models.Transaction, error)
	ListPayouts(ctx context.Context, ownerID uuid.UUID) ([]models.PayoutRequest, error)
}

type methodService interface {
	CreateMethod(ctx context.Context, ownerID uuid.UUID, method models.PayoutMethod) (models.PayoutMethod, error)
	ListMethods(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]models.PayoutMethod, error)
	UpdateMethod(ctx context.Context, ownerID uuid.UUID, method models.PayoutMethod) (models.PayoutMethod, error)
	SetDefaultMethod(ctx context.Context, ownerID uuid.UUID, methodID uuid.UUID) error
	DeactivateMethod(ctx context.Context, ownerID uuid.UUID, methodID uuid.UUID) error
}

type adminService interface {
	ListPayoutsByStatus(ctx context.Context, status string, limit int) ([]models.PayoutRequest, error)

	// Has to return apperrors.ErrInvalidStateTransition unless the
	// request is in requested state
	MarkProcessing(ctx context.Context, requestID uuid.UUID) (models.PayoutRequest, error)

	// Has to return apperrors.ErrInvalidStateTransition unless the
	// request is in requested or processing state
	ResolvePayout(ctx context.Context, requestID uuid.UUID, outcome string, externalRef string) (models.PayoutRequest, error)

	VerifyMethod(ctx context.Context, methodID uuid.UUID, verified bool) (models.PayoutMethod, error)
	VerifyLedger(ctx context.Context, ownerID uuid.UUID) (walletsvc.LedgerReport, error)
}

type authService interface {
	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}
