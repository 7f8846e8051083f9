package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/oncolab/leukoflow/internal/domain"
)

// NotificationRepo persists notification records. The core only writes
// these; consumption belongs to other systems.
type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}
