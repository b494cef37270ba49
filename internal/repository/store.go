package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories and allows running them inside a single transaction.
type Store interface {
	Users() UserRepository
	Exams() ExamRepository
	Groups() GroupRepository
	Forms() ExamFormRepository
	AuditLogs() AuditLogRepository

	// WithTransaction runs fn against repositories bound to one database transaction.
	// Returning an error from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db        *gorm.DB
	users     UserRepository
	exams     ExamRepository
	groups    GroupRepository
	forms     ExamFormRepository
	auditLogs AuditLogRepository
}

// NewStore constructs a Store backed by the given gorm connection.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:        db,
		users:     NewUserRepository(db),
		exams:     NewExamRepository(db),
		groups:    NewGroupRepository(db),
		forms:     NewExamFormRepository(db),
		auditLogs: NewAuditLogRepository(db),
	}
}

func (s *gormStore) Users() UserRepository { return s.users }
func (s *gormStore) Exams() ExamRepository { return s.exams }
func (s *gormStore) Groups() GroupRepository { return s.groups }
func (s *gormStore) Forms() ExamFormRepository { return s.forms }
func (s *gormStore) AuditLogs() AuditLogRepository { return s.auditLogs }

func (s *gormStore) WithTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
