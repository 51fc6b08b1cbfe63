package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/toughportal/internal/domain"
	"github.com/talkincode/toughportal/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	WriteModeInsert = "insert"
	WriteModeUpsert = "upsert"

	contactEmailIndex = "uix_hotspot_contact_email"
)

// ContactRepository handles database operations for hotspot contacts
type ContactRepository interface {
	// Insert appends a new contact row
	Insert(ctx context.Context, contact *domain.HotspotContact) error

	// Upsert keeps one row per email, refreshing the device fields and last_seen_at
	Upsert(ctx context.Context, contact *domain.HotspotContact) error

	// Recent returns the most recently seen contacts
	Recent(ctx context.Context, limit int) ([]*domain.HotspotContact, error)

	// All returns every contact ordered by creation time
	All(ctx context.Context) ([]*domain.HotspotContact, error)

	// DeleteOlderThan removes contacts not seen since cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormContactRepository is the GORM implementation of ContactRepository
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GORM-based repository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// EnsureContactSchema installs the partial unique index the upsert mode conflicts on,
// and removes it in insert mode so repeated visits can append.
func EnsureContactSchema(db *gorm.DB, mode string) error {
	if strings.EqualFold(strings.TrimSpace(mode), WriteModeUpsert) {
		err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS " + contactEmailIndex +
			" ON hotspot_contact (email) WHERE email <> ''").Error
		return errors.Wrap(err, "create contact email index")
	}
	return errors.Wrap(db.Exec("DROP INDEX IF EXISTS "+contactEmailIndex).Error, "drop contact email index")
}

func (r *GormContactRepository) Insert(ctx context.Context, contact *domain.HotspotContact) error {
	prepareContact(contact)
	return errors.Wrap(r.db.WithContext(ctx).Create(contact).Error, "insert contact")
}

func (r *GormContactRepository) Upsert(ctx context.Context, contact *domain.HotspotContact) error {
	if contact.Email == "" {
		return r.Insert(ctx, contact)
	}
	prepareContact(contact)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "email"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "email <> ''"}}},
		DoUpdates: clause.AssignmentColumns([]string{
			"whatsapp", "mac_address", "ip_address", "secret_hash", "last_seen_at",
		}),
	}).Create(contact).Error
	return errors.Wrap(err, "upsert contact")
}

func (r *GormContactRepository) Recent(ctx context.Context, limit int) ([]*domain.HotspotContact, error) {
	var contacts []*domain.HotspotContact
	err := r.db.WithContext(ctx).
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&contacts).Error
	return contacts, err
}

func (r *GormContactRepository) All(ctx context.Context) ([]*domain.HotspotContact, error) {
	var contacts []*domain.HotspotContact
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&contacts).Error
	return contacts, err
}

func (r *GormContactRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_seen_at < ?", cutoff).
		Delete(&domain.HotspotContact{})
	return result.RowsAffected, result.Error
}

func prepareContact(contact *domain.HotspotContact) {
	now := time.Now()
	if contact.ID == 0 {
		contact.ID = common.UUIDint64()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.LastSeenAt = now
}
