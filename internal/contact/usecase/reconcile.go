package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

func (u *contactUsecase) RecalculateAllInteractionCounts(ctx context.Context, userID string) error {
	contacts, err := u.contactRepo.ListActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}

	var errs []error
	updated := 0
	for _, contact := range contacts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		count, err := u.countInteractions(ctx, userID, contact.Email)
		if err == nil {
			err = u.contactRepo.SetInteractionCount(ctx, contact.ID, count)
		}
		if err != nil {
			u.logger.Error("Failed to recalculate interaction count",
				zap.String("user_id", userID),
				zap.String("email", contact.Email),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("contact %s: %w", contact.Email, err))
			continue
		}

		updated++
		u.logger.Debug("Recalculated interaction count",
			zap.String("email", contact.Email),
			zap.Int("interaction_count", count),
		)
	}

	u.logger.Info("Recalculation complete",
		zap.String("user_id", userID),
		zap.Int("contacts", len(contacts)),
		zap.Int("updated", updated),
		zap.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}
