package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/models"
	"github.com/classmarket/wallet/internal/repository"
)

// Payout method management. Methods are owned by their user; every
// operation checks ownership before touching the row.

func (s *Service) CreateMethod(ctx context.Context, ownerID uuid.UUID, method models.PayoutMethod) (models.PayoutMethod, error) {
	method.UserID = ownerID

	// Insert non-default first: the one-default-per-user index would
	// reject the row while the previous default still holds the flag
	wantDefault := method.IsDefault
	method.IsDefault = false

	var created models.PayoutMethod
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		created, err = storage.PayoutMethod().Create(ctx, method)
		if err != nil {
			return err
		}

		if !wantDefault {
			return nil
		}

		if err := storage.PayoutMethod().SetDefault(ctx, ownerID, created.ID); err != nil {
			return err
		}
		created.IsDefault = true
		return nil
	})
	if err != nil {
		return created, fmt.Errorf("can't create payout method: %w", err)
	}

	return created, nil
}

func (s *Service) ListMethods(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]models.PayoutMethod, error) {
	return s.storage.PayoutMethod().ListByUser(ctx, ownerID, activeOnly)
}

func (s *Service) UpdateMethod(ctx context.Context, ownerID uuid.UUID, method models.PayoutMethod) (models.PayoutMethod, error) {
	var updated models.PayoutMethod

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := ownMethod(ctx, storage, ownerID, method.ID); err != nil {
			return err
		}

		var err error
		updated, err = storage.PayoutMethod().Update(ctx, method)
		return err
	})
	if err != nil {
		return updated, fmt.Errorf("can't update payout method: %w", err)
	}

	return updated, nil
}

func (s *Service) SetDefaultMethod(ctx context.Context, ownerID uuid.UUID, methodID uuid.UUID) error {
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := ownMethod(ctx, storage, ownerID, methodID); err != nil {
			return err
		}

		return storage.PayoutMethod().SetDefault(ctx, ownerID, methodID)
	})
	if err != nil {
		return fmt.Errorf("can't set default payout method: %w", err)
	}

	return nil
}

// DeactivateMethod soft-deletes the method. Historical payout requests
// keep their reference.
func (s *Service) DeactivateMethod(ctx context.Context, ownerID uuid.UUID, methodID uuid.UUID) error {
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := ownMethod(ctx, storage, ownerID, methodID); err != nil {
			return err
		}

		return storage.PayoutMethod().Deactivate(ctx, methodID)
	})
	if err != nil {
		return fmt.Errorf("can't deactivate payout method: %w", err)
	}

	return nil
}

// VerifyMethod is an admin action and does not check ownership
func (s *Service) VerifyMethod(ctx context.Context, methodID uuid.UUID, verified bool) (models.PayoutMethod, error) {
	method, err := s.storage.PayoutMethod().SetVerified(ctx, methodID, verified)
	if err != nil {
		return method, fmt.Errorf("can't verify payout method: %w", err)
	}

	return method, nil
}

// ownMethod returns ErrPayoutMethodNotFound when the method does not
// exist or belongs to someone else, so ownership is never leaked
func ownMethod(ctx context.Context, storage repository.Storage, ownerID uuid.UUID, methodID uuid.UUID) error {
	method, err := storage.PayoutMethod().GetByID(ctx, methodID)
	if err != nil {
		return err
	}
	if method.UserID != ownerID {
		return apperrors.ErrPayoutMethodNotFound
	}

	return nil
}
