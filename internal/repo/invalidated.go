package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/devteria/identity_service/internal/models"
)

// RevokeToken inserts the revocation row for jti if absent. The insert is the
// linearization point for single-use tokens: when two refreshes race on the
// same token, exactly one insert lands and the loser sees inserted=false.
func (r *GormRepo) RevokeToken(ctx context.Context, jti string, expiry time.Time) (inserted bool, err error) {
	row := models.InvalidatedToken{ID: jti, ExpiryTime: expiry}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("revoke token: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.InvalidatedToken{}).
		Where("id = ?", jti).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return count > 0, nil
}
