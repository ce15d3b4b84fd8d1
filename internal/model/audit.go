package model

import (
	"time"
)

// AuditAction is the kind of event recorded in the audit log.
// It is persisted by its symbolic name, never by position.
type AuditAction string

const (
	ActionLogin  AuditAction = "LOGIN"
	ActionLogout AuditAction = "LOGOUT"

	ActionStockAdjust AuditAction = "STOCK_ADJUST"
	ActionPriceChange AuditAction = "PRICE_CHANGE"

	ActionCreateCategory AuditAction = "CREATE_CATEGORY"
	ActionUpdateCategory AuditAction = "UPDATE_CATEGORY"
	ActionDeleteCategory AuditAction = "DELETE_CATEGORY"

	ActionCreateProduct AuditAction = "CREATE_PRODUCT"
	ActionUpdateProduct AuditAction = "UPDATE_PRODUCT"
	ActionDeleteProduct AuditAction = "DELETE_PRODUCT"

	ActionCreateSupplier AuditAction = "CREATE_SUPPLIER"
	ActionUpdateSupplier AuditAction = "UPDATE_SUPPLIER"
	ActionDeleteSupplier AuditAction = "DELETE_SUPPLIER"

	ActionCreateUser AuditAction = "CREATE_USER"
	ActionUpdateUser AuditAction = "UPDATE_USER"
	ActionDeleteUser AuditAction = "DELETE_USER"

	ActionCreateRole       AuditAction = "CREATE_ROLE"
	ActionUpdateRole       AuditAction = "UPDATE_ROLE"
	ActionDeleteRole       AuditAction = "DELETE_ROLE"
	ActionPermissionChange AuditAction = "PERMISSION_CHANGE"

	// Sales
	ActionCreateSale AuditAction = "SALE_CREATE"
	ActionVoidSale   AuditAction = "SALE_VOID"
	ActionRefund     AuditAction = "REFUND"
)

var auditActions = []AuditAction{
	ActionLogin,
	ActionLogout,
	ActionStockAdjust,
	ActionPriceChange,
	ActionCreateCategory,
	ActionUpdateCategory,
	ActionDeleteCategory,
	ActionCreateProduct,
	ActionUpdateProduct,
	ActionDeleteProduct,
	ActionCreateSupplier,
	ActionUpdateSupplier,
	ActionDeleteSupplier,
	ActionCreateUser,
	ActionUpdateUser,
	ActionDeleteUser,
	ActionCreateRole,
	ActionUpdateRole,
	ActionDeleteRole,
	ActionPermissionChange,
	ActionCreateSale,
	ActionVoidSale,
	ActionRefund,
}

// AllAuditActions returns every known action in declaration order.
func AllAuditActions() []AuditAction {
	out := make([]AuditAction, len(auditActions))
	copy(out, auditActions)
	return out
}

// IsValid reports whether a is one of the known actions.
func (a AuditAction) IsValid() bool {
	for _, known := range auditActions {
		if a == known {
			return true
		}
	}
	return false
}

func (a AuditAction) String() string {
	return string(a)
}

// ParseAuditAction returns the action named s and false if s is unknown.
func ParseAuditAction(s string) (AuditAction, bool) {
	a := AuditAction(s)
	return a, a.IsValid()
}

// AuditLog tracks who did what, and when, at the point of sale.
// Presence and length rules are declared in the tags and checked by the
// repository on save.
type AuditLog struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	AuditorID int64       `gorm:"not null;index" json:"auditor_id" validate:"required"`
	Action    AuditAction `gorm:"type:varchar(50);not null;index" json:"action" validate:"required,enum"`
	Reason    *string     `gorm:"type:varchar(100)" json:"reason,omitempty" validate:"omitempty,max=100"`
	CreatedAt time.Time   `gorm:"not null;index;precision:6;autoCreateTime;<-:create" json:"created_at"`

	// The references below are plain ids until the referenced entities exist.
	CategoryID *int64 `json:"category_id,omitempty"` // future relation: Category
	ProductID  *int64 `json:"product_id,omitempty"`  // future relation: Product
	SupplierID *int64 `json:"supplier_id,omitempty"` // future relation: Supplier
	UserID     *int64 `json:"user_id,omitempty"`     // future relation: User
	RoleID     *int64 `json:"role_id,omitempty"`     // future relation: Role
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// GetID returns the store-assigned identifier, zero before the first save.
func (a AuditLog) GetID() int64 {
	return a.ID
}

// AuditLogOption sets an optional field on a new AuditLog.
type AuditLogOption func(*AuditLog)

// NewAuditLog builds an unsaved audit event. ID and CreatedAt stay zero
// until the repository persists it.
func NewAuditLog(auditorID int64, action AuditAction, opts ...AuditLogOption) *AuditLog {
	l := &AuditLog{AuditorID: auditorID, Action: action}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func WithReason(reason string) AuditLogOption {
	return func(l *AuditLog) { l.Reason = &reason }
}

func WithCategory(id int64) AuditLogOption {
	return func(l *AuditLog) { l.CategoryID = &id }
}

func WithProduct(id int64) AuditLogOption {
	return func(l *AuditLog) { l.ProductID = &id }
}

func WithSupplier(id int64) AuditLogOption {
	return func(l *AuditLog) { l.SupplierID = &id }
}

func WithUser(id int64) AuditLogOption {
	return func(l *AuditLog) { l.UserID = &id }
}

func WithRole(id int64) AuditLogOption {
	return func(l *AuditLog) { l.RoleID = &id }
}
