package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

// AuditEntry captures the details required to persist an audit record.
type AuditEntry struct {
	ActorID  uint
	Action   string
	Details  string
	Metadata map[string]interface{}
}

// AuditService exposes the append-only audit trail.
type AuditService interface {
	Record(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo repository.AuditLogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	if err := appendAudit(ctx, s.repo, entry); err != nil {
		s.logger.Error().Err(err).Str("action", entry.Action).Msg("failed to persist audit log")
		return err
	}
	return nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	filter := repository.AuditLogFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Action:   strings.ToLower(strings.TrimSpace(req.Action)),
	}
	if req.UserID > 0 {
		filter.UserID = &req.UserID
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditLogListResponse{}, err
	}

	items := make([]dto.AuditLogResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.NewAuditLogResponse(row))
	}

	return dto.AuditLogListResponse{
		Items:      items,
		Pagination: paginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// appendAudit writes one entry through repo, which may be bound to an open transaction.
func appendAudit(ctx context.Context, repo repository.AuditLogRepository, entry AuditEntry) error {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if action == "" {
		return fmt.Errorf("audit action is required")
	}
	if entry.ActorID == 0 {
		return fmt.Errorf("audit actor is required")
	}

	model := models.AuditLog{
		UserID:   entry.ActorID,
		Action:   action,
		Details:  strings.TrimSpace(entry.Details),
		Metadata: sanitizeMetadata(entry.Metadata),
	}

	if err := repo.Create(ctx, &model); err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") || strings.Contains(lower, "password") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}
