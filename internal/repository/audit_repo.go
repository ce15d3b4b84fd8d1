package repository

import (
	"github.com/axelbon/pos-backend/internal/model"

	"gorm.io/gorm"
)

// AuditLogRepository stores audit events. It adds no finders of its own:
// callers page through FindPage sorted by created_at or auditor_id.
type AuditLogRepository interface {
	Repository[model.AuditLog, int64]
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return NewGormRepository[model.AuditLog, int64](db)
}
