package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/auth"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
	"github.com/noah-isme/exam-hall-api/pkg/mailer"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupStore(t *testing.T) (repository.Store, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection serialises transactions the way row locks would on postgres.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return repository.NewStore(db), db
}

func testHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return hasher
}

func seedUser(t *testing.T, store repository.Store, name string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "unused",
		Role:         role,
	}
	if role == models.RoleAdmin {
		slot := 1
		user.AdminSlot = &slot
	}
	require.NoError(t, store.Users().Create(context.Background(), &user))
	return user
}

func seedExam(t *testing.T, store repository.Store, name, date string, creator uint) models.Exam {
	t.Helper()
	day, err := time.Parse(models.ExamDateLayout, date)
	require.NoError(t, err)
	exam := models.Exam{Name: name, Date: day, CreatedBy: creator}
	require.NoError(t, store.Exams().Create(context.Background(), &exam))
	return exam
}

func actorFor(user models.User) Actor {
	return Actor{ID: user.ID, Role: user.Role, Name: user.Name}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []FormAcceptedEvent
	err    error
}

func (n *recordingNotifier) FormAccepted(ctx context.Context, event FormAcceptedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func countAudit(t *testing.T, store repository.Store, action string) int64 {
	t.Helper()
	_, total, err := store.AuditLogs().List(context.Background(), repository.AuditLogFilter{Action: action})
	require.NoError(t, err)
	return total
}
