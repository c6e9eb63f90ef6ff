package apperrors

import (
	"errors"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("wallet already exists for user")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrBalanceInsufficient = errors.New("insufficient available balance")

	ErrPayoutMethodNotFound = errors.New("payout method not found")
	ErrPayoutMethodInactive = errors.New("payout method is deactivated")

	ErrPayoutRequestNotFound  = errors.New("payout request not found")
	ErrInvalidStateTransition = errors.New("payout request is not in a resolvable state")

	ErrTeacherNotFound = errors.New("teacher not found")
)
