package repository

import (
	"context"
	"time"

	"github.com/talkincode/toughportal/internal/domain"
	"github.com/talkincode/toughportal/pkg/common"
	"gorm.io/gorm"
)

// RegisterLogRepository handles database operations for registration audit logs
type RegisterLogRepository interface {
	Create(ctx context.Context, log *domain.PortalRegisterLog) error
	GetByUsername(ctx context.Context, username string) ([]*domain.PortalRegisterLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}

// GormRegisterLogRepository is the GORM implementation of RegisterLogRepository
type GormRegisterLogRepository struct {
	db *gorm.DB
}

func NewGormRegisterLogRepository(db *gorm.DB) *GormRegisterLogRepository {
	return &GormRegisterLogRepository{db: db}
}

func (r *GormRegisterLogRepository) Create(ctx context.Context, log *domain.PortalRegisterLog) error {
	if log.ID == 0 {
		log.ID = common.UUIDint64()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *GormRegisterLogRepository) GetByUsername(ctx context.Context, username string) ([]*domain.PortalRegisterLog, error) {
	var logs []*domain.PortalRegisterLog
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

func (r *GormRegisterLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	return r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.PortalRegisterLog{}).Error
}
