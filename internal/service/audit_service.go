package service

import (
	"context"
	"errors"
	"time"

	"github.com/axelbon/pos-backend/internal/model"
	"github.com/axelbon/pos-backend/internal/repository"
	"github.com/axelbon/pos-backend/pkg/pagination"

	"go.uber.org/zap"
)

// --- DTOs ---

// RecordAuditRequest is what application code fills in before an event is stored.
type RecordAuditRequest struct {
	AuditorID  int64   `json:"auditor_id"`
	Action     string  `json:"action"`
	Reason     *string `json:"reason,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
	ProductID  *int64  `json:"product_id,omitempty"`
	SupplierID *int64  `json:"supplier_id,omitempty"`
	UserID     *int64  `json:"user_id,omitempty"`
	RoleID     *int64  `json:"role_id,omitempty"`
}

type AuditLogResponse struct {
	ID         int64   `json:"id"`
	AuditorID  int64   `json:"auditor_id"`
	Action     string  `json:"action"`
	Reason     *string `json:"reason"`
	CreatedAt  string  `json:"created_at"`
	CategoryID *int64  `json:"category_id"`
	ProductID  *int64  `json:"product_id"`
	SupplierID *int64  `json:"supplier_id"`
	UserID     *int64  `json:"user_id"`
	RoleID     *int64  `json:"role_id"`
}

// --- Interface ---

type AuditService interface {
	Record(ctx context.Context, req RecordAuditRequest) (AuditLogResponse, error)
	RecordBatch(ctx context.Context, reqs []RecordAuditRequest) ([]AuditLogResponse, error)
	GetAuditLog(ctx context.Context, id int64) (AuditLogResponse, error)
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
	CountAuditLogs(ctx context.Context) (int64, error)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditLogRepository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

// --- Implementation ---

func (s *auditService) Record(ctx context.Context, req RecordAuditRequest) (AuditLogResponse, error) {
	s.warnUnknownAction(req)
	saved, err := s.repo.Save(ctx, toAuditLog(req))
	if err != nil {
		s.logRejected(err, req)
		return AuditLogResponse{}, err
	}

	s.logger.Debug("audit event recorded",
		zap.Int64("id", saved.ID),
		zap.Int64("auditor_id", saved.AuditorID),
		zap.String("action", saved.Action.String()),
	)
	return toAuditLogResponse(*saved), nil
}

// RecordBatch stores all events or none.
func (s *auditService) RecordBatch(ctx context.Context, reqs []RecordAuditRequest) ([]AuditLogResponse, error) {
	logs := make([]*model.AuditLog, 0, len(reqs))
	for _, req := range reqs {
		s.warnUnknownAction(req)
		logs = append(logs, toAuditLog(req))
	}

	saved, err := s.repo.SaveAll(ctx, logs)
	if err != nil {
		s.logger.Warn("audit batch rejected", zap.Int("size", len(reqs)), zap.Error(err))
		return nil, err
	}

	res := make([]AuditLogResponse, 0, len(saved))
	for _, l := range saved {
		res = append(res, toAuditLogResponse(*l))
	}
	s.logger.Debug("audit batch recorded", zap.Int("size", len(res)))
	return res, nil
}

// warnUnknownAction flags actions outside the known set; the store rejects them.
func (s *auditService) warnUnknownAction(req RecordAuditRequest) {
	if _, ok := model.ParseAuditAction(req.Action); !ok {
		s.logger.Warn("unknown audit action", zap.String("action", req.Action), zap.Int64("auditor_id", req.AuditorID))
	}
}

func (s *auditService) GetAuditLog(ctx context.Context, id int64) (AuditLogResponse, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return AuditLogResponse{}, err
	}
	return toAuditLogResponse(*l), nil
}

// GetAuditLogs returns one page of events, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	p := pagination.New(page, limit)

	result, err := s.repo.FindPage(ctx, repository.PageRequest{
		Offset: p.Offset,
		Limit:  p.Limit,
		Sort:   "created_at",
		Desc:   true,
	})
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(result.Items))
	for _, l := range result.Items {
		res = append(res, toAuditLogResponse(l))
	}

	return res, result.Total, nil
}

func (s *auditService) CountAuditLogs(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *auditService) logRejected(err error, req RecordAuditRequest) {
	if errors.Is(err, repository.ErrConstraintViolation) {
		s.logger.Warn("audit event rejected",
			zap.Int64("auditor_id", req.AuditorID),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return
	}
	s.logger.Error("audit event not stored", zap.String("action", req.Action), zap.Error(err))
}

func toAuditLog(req RecordAuditRequest) *model.AuditLog {
	return &model.AuditLog{
		AuditorID:  req.AuditorID,
		Action:     model.AuditAction(req.Action),
		Reason:     req.Reason,
		CategoryID: req.CategoryID,
		ProductID:  req.ProductID,
		SupplierID: req.SupplierID,
		UserID:     req.UserID,
		RoleID:     req.RoleID,
	}
}

func toAuditLogResponse(l model.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:         l.ID,
		AuditorID:  l.AuditorID,
		Action:     l.Action.String(),
		Reason:     l.Reason,
		CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
		CategoryID: l.CategoryID,
		ProductID:  l.ProductID,
		SupplierID: l.SupplierID,
		UserID:     l.UserID,
		RoleID:     l.RoleID,
	}
}
