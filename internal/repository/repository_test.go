package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createUser(t *testing.T, store Store, name string, role models.Role) models.User {
	t.Helper()
	user := models.User{Name: name, Email: strings.ToLower(name) + "@example.com", PasswordHash: "hash", Role: role}
	if role == models.RoleAdmin {
		slot := 1
		user.AdminSlot = &slot
	}
	require.NoError(t, store.Users().Create(context.Background(), &user))
	return user
}

func createExam(t *testing.T, store Store, name string, date time.Time, creator uint) models.Exam {
	t.Helper()
	exam := models.Exam{Name: name, Date: date, CreatedBy: creator}
	require.NoError(t, store.Exams().Create(context.Background(), &exam))
	return exam
}

func TestUserRepositoryAdminSlotIsUnique(t *testing.T) {
	store := NewStore(setupTestDB(t))
	createUser(t, store, "Ada", models.RoleAdmin)

	slot := 1
	second := models.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "hash", Role: models.RoleAdmin, AdminSlot: &slot}
	err := store.Users().Create(context.Background(), &second)
	require.Error(t, err)

	count, err := store.Users().CountByRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	createUser(t, store, "Sam", models.RoleStudent)
	createUser(t, store, "Sue", models.RoleStudent)
	students, err := store.Users().ListByRole(context.Background(), models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 2)
}

func TestUserRepositoryNormalizesEmail(t *testing.T) {
	store := NewStore(setupTestDB(t))
	user := models.User{Name: "Sam", Email: "  Sam@Example.COM ", PasswordHash: "hash", Role: models.RoleStudent}
	require.NoError(t, store.Users().Create(context.Background(), &user))

	found, err := store.Users().GetByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	exists, err := store.Users().EmailExists(context.Background(), "SAM@example.com")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestExamRepositoryListForStudentFollowsGroups(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))
	admin := createUser(t, store, "Ada", models.RoleAdmin)
	student := createUser(t, store, "Sam", models.RoleStudent)
	other := createUser(t, store, "Sue", models.RoleStudent)

	later := createExam(t, store, "Finals", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), admin.ID)
	earlier := createExam(t, store, "Midterm", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), admin.ID)
	createExam(t, store, "Hidden", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), admin.ID)

	first := models.Group{Name: "A", ExamID: later.ID}
	second := models.Group{Name: "B", ExamID: earlier.ID}
	duplicate := models.Group{Name: "C", ExamID: earlier.ID}
	for _, group := range []*models.Group{&first, &second, &duplicate} {
		require.NoError(t, store.Groups().Create(ctx, group))
	}

	added, err := store.Groups().AddMembers(ctx, first.ID, []uint{student.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), added)
	_, err = store.Groups().AddMembers(ctx, second.ID, []uint{student.ID, other.ID})
	require.NoError(t, err)
	_, err = store.Groups().AddMembers(ctx, duplicate.ID, []uint{student.ID})
	require.NoError(t, err)

	added, err = store.Groups().AddMembers(ctx, first.ID, []uint{student.ID})
	require.NoError(t, err)
	require.Equal(t, int64(0), added, "existing members are skipped")

	exams, err := store.Exams().ListForStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	require.Equal(t, "Midterm", exams[0].Name)
	require.Equal(t, "Finals", exams[1].Name)

	member, err := store.Groups().IsMemberForExam(ctx, other.ID, later.ID)
	require.NoError(t, err)
	require.False(t, member)

	ids, err := store.Groups().StudentIDsForExam(ctx, earlier.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{student.ID, other.ID}, ids)

	rows, err := store.Groups().List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Finals", rows[0].ExamName)
	require.Equal(t, int64(1), rows[0].MemberCount)
	require.Equal(t, int64(2), rows[1].MemberCount)
}

func TestExamFormRepositoryMarkAcceptedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))
	admin := createUser(t, store, "Ada", models.RoleAdmin)
	student := createUser(t, store, "Sam", models.RoleStudent)
	exam := createExam(t, store, "Midterm", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), admin.ID)

	form := models.ExamForm{
		StudentID: student.ID,
		ExamID:    exam.ID,
		Payload:   datatypes.JSONMap{"rollNumber": "101"},
		Status:    models.FormStatusPending,
	}
	require.NoError(t, store.Forms().Create(ctx, &form))

	transitioned, err := store.Forms().MarkAccepted(ctx, form.ID, admin.ID, time.Now())
	require.NoError(t, err)
	require.True(t, transitioned)

	transitioned, err = store.Forms().MarkAccepted(ctx, form.ID, admin.ID, time.Now())
	require.NoError(t, err)
	require.False(t, transitioned)

	stored, err := store.Forms().GetByID(ctx, form.ID)
	require.NoError(t, err)
	require.Equal(t, models.FormStatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedBy)
	require.Equal(t, admin.ID, *stored.AcceptedBy)

	rows, err := store.Forms().ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Midterm", rows[0].ExamName)
	require.Equal(t, "Sam", rows[0].StudentName)
	require.Equal(t, "101", rows[0].Payload["rollNumber"])

	exists, err := store.Forms().Exists(ctx, student.ID, exam.ID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestAuditLogRepositoryListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))
	admin := createUser(t, store, "Ada", models.RoleAdmin)

	base := time.Now().Add(-time.Hour)
	for i, action := range []string{models.AuditCreateExam, models.AuditAddGroup, models.AuditAcceptForm} {
		entry := models.AuditLog{UserID: admin.ID, Action: action, Details: action, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.AuditLogs().Create(ctx, &entry))
	}

	rows, total, err := store.AuditLogs().List(ctx, AuditLogFilter{PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, rows, 2)
	require.Equal(t, models.AuditAcceptForm, rows[0].Action)
	require.Equal(t, "Ada", rows[0].UserName)

	rows, total, err = store.AuditLogs().List(ctx, AuditLogFilter{Action: models.AuditAddGroup})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
}

func TestStoreWithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))
	admin := createUser(t, store, "Ada", models.RoleAdmin)

	err := store.WithTransaction(ctx, func(tx Store) error {
		exam := models.Exam{Name: "Rolled back", Date: time.Now(), CreatedBy: admin.ID}
		if err := tx.Exams().Create(ctx, &exam); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	exams, err := store.Exams().List(ctx)
	require.NoError(t, err)
	require.Empty(t, exams)
}
