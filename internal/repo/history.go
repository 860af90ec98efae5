package repo

import (
	"context"
	"fmt"

	"github.com/devteria/identity_service/internal/models"
)

// AppendPasswordHistory records a superseded digest. Append-only: nothing in
// this service ever updates or deletes history rows.
func (r *GormRepo) AppendPasswordHistory(ctx context.Context, userID, passwordHash string) error {
	entry := models.PasswordHistory{
		UserID:       userID,
		PasswordHash: passwordHash,
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append password history: %w", err)
	}
	return nil
}

func (r *GormRepo) PasswordHistoryForUser(ctx context.Context, userID string) ([]models.PasswordHistory, error) {
	var entries []models.PasswordHistory
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load password history: %w", err)
	}
	return entries, nil
}
