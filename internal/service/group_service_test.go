package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
)

func TestGroupServiceCreateAndList(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	svc := NewGroupService(store, nil, testValidator(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, actorFor(admin), dto.GroupCreateRequest{Name: "Section A", ExamID: 999})
	require.ErrorIs(t, err, ErrExamNotFound)

	group, err := svc.Create(ctx, actorFor(admin), dto.GroupCreateRequest{Name: "Section A", ExamID: exam.ID})
	require.NoError(t, err)
	require.Equal(t, "Midterm", group.ExamName)

	groups, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "Section A", groups[0].Name)
	require.Equal(t, int64(0), groups[0].MemberCount)
	require.Equal(t, int64(1), countAudit(t, store, models.AuditAddGroup))
}

func TestGroupServiceAssignStudents(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	sam := seedUser(t, store, "Sam", models.RoleStudent)
	sue := seedUser(t, store, "Sue", models.RoleStudent)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	svc := NewGroupService(store, nil, testValidator(), testLogger())
	ctx := context.Background()

	group, err := svc.Create(ctx, actorFor(admin), dto.GroupCreateRequest{Name: "Section A", ExamID: exam.ID})
	require.NoError(t, err)

	_, err = svc.AssignStudents(ctx, actorFor(admin), group.ID, dto.GroupAssignRequest{StudentIDs: []uint{sam.ID, admin.ID}})
	require.ErrorIs(t, err, ErrUnknownStudents)
	require.Equal(t, int64(0), countAudit(t, store, models.AuditAssignGroupStudents))

	result, err := svc.AssignStudents(ctx, actorFor(admin), group.ID, dto.GroupAssignRequest{StudentIDs: []uint{sam.ID, sam.ID}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Requested)
	require.Equal(t, int64(1), result.Added)

	result, err = svc.AssignStudents(ctx, actorFor(admin), group.ID, dto.GroupAssignRequest{StudentIDs: []uint{sam.ID, sue.ID}})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Added)

	members, err := svc.Members(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	_, err = svc.Members(ctx, 999)
	require.ErrorIs(t, err, ErrGroupNotFound)

	_, err = svc.AssignStudents(ctx, actorFor(admin), 999, dto.GroupAssignRequest{StudentIDs: []uint{sam.ID}})
	require.ErrorIs(t, err, ErrGroupNotFound)
}

func TestStudentExamServiceUsesCacheAndInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	sam := seedUser(t, store, "Sam", models.RoleStudent)
	sue := seedUser(t, store, "Sue", models.RoleStudent)
	midterm := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	seedExam(t, store, "Unassigned", "2024-05-01", admin.ID)

	cache := NewExamCache(client, time.Minute, testLogger())
	groups := NewGroupService(store, cache, testValidator(), testLogger())
	exams := NewStudentExamService(store.Exams(), cache, testLogger())
	ctx := context.Background()

	listed, err := exams.ListForStudent(ctx, actorFor(sam), sam.ID)
	require.NoError(t, err)
	require.Empty(t, listed)
	require.True(t, mr.Exists(studentExamsKey(sam.ID)))

	group, err := groups.Create(ctx, actorFor(admin), dto.GroupCreateRequest{Name: "Section A", ExamID: midterm.ID})
	require.NoError(t, err)
	_, err = groups.AssignStudents(ctx, actorFor(admin), group.ID, dto.GroupAssignRequest{StudentIDs: []uint{sam.ID}})
	require.NoError(t, err)
	require.False(t, mr.Exists(studentExamsKey(sam.ID)))

	listed, err = exams.ListForStudent(ctx, actorFor(sam), sam.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "Midterm", listed[0].Name)
	require.Equal(t, "2024-06-01", listed[0].Date)

	_, err = exams.ListForStudent(ctx, actorFor(sue), sam.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// Admins may inspect any student's view.
	listed, err = exams.ListForStudent(ctx, actorFor(admin), sam.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestExamServiceCreateUpdateList(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	svc := NewExamService(store, nil, testValidator(), testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, actorFor(admin), dto.ExamCreateRequest{
		Name:        "Midterm",
		Date:        "2024-06-01",
		Description: "<script>alert(1)</script>Bring a pencil",
		CreatedBy:   999,
	})
	require.NoError(t, err)
	require.Equal(t, admin.ID, created.CreatedBy)
	require.Equal(t, "2024-06-01", created.Date)
	require.Equal(t, "Bring a pencil", created.Description)

	_, err = svc.Create(ctx, actorFor(admin), dto.ExamCreateRequest{Name: "Broken", Date: "01/06/2024"})
	require.Error(t, err)

	_, err = svc.Create(ctx, actorFor(admin), dto.ExamCreateRequest{Name: "Broken", Date: "2024-06-02", FormSchema: []byte(`{"type": 12}`)})
	require.ErrorIs(t, err, ErrInvalidFormSchema)

	newName := "Midterm (rescheduled)"
	newDate := "2024-06-08"
	updated, err := svc.Update(ctx, actorFor(admin), created.ID, dto.ExamUpdateRequest{Name: &newName, Date: &newDate})
	require.NoError(t, err)
	require.Equal(t, newName, updated.Name)
	require.Equal(t, "2024-06-08", updated.Date)

	_, err = svc.Update(ctx, actorFor(admin), 999, dto.ExamUpdateRequest{Name: &newName})
	require.ErrorIs(t, err, ErrExamNotFound)

	exams, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, exams, 1)
	require.Equal(t, int64(1), countAudit(t, store, models.AuditCreateExam))
	require.Equal(t, int64(1), countAudit(t, store, models.AuditUpdateExam))
}
