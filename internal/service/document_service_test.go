package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/pkg/storage"
)

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (s *memoryStorage) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "/uploads/00000000-0000-0000-0000-000000000000-" + name
	s.objects[ref] = content
	return ref, nil
}

func (s *memoryStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[ref]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *memoryStorage) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[ref]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, ref)
	return nil
}

func (s *memoryStorage) refs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]string, 0, len(s.objects))
	for ref := range s.objects {
		refs = append(refs, ref)
	}
	return refs
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"document\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["document"]
	require.Len(t, files, 1)
	return files[0]
}

func samplePDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")
}

func TestDocumentServiceRejectsSizeAndType(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	svc := NewDocumentService(newMemoryStorage(), store, 1, testLogger())
	ctx := context.Background()

	_, err := svc.Upload(ctx, actorFor(admin), exam.ID, buildFileHeader(t, "big.pdf", bytes.Repeat([]byte("a"), 2*1024*1024)))
	require.ErrorIs(t, err, ErrUploadTooLarge)

	_, err = svc.Upload(ctx, actorFor(admin), exam.ID, buildFileHeader(t, "tool.exe", []byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00")))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)

	_, err = svc.Upload(ctx, actorFor(admin), 999, buildFileHeader(t, "notes.pdf", samplePDF()))
	require.ErrorIs(t, err, ErrExamNotFound)

	_, err = svc.Upload(ctx, actorFor(admin), exam.ID, nil)
	require.ErrorIs(t, err, ErrFileRequired)
}

func TestDocumentServiceUploadAndOpen(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	member := seedUser(t, store, "Sam", models.RoleStudent)
	outsider := seedUser(t, store, "Eve", models.RoleStudent)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	files := newMemoryStorage()
	svc := NewDocumentService(files, store, 5, testLogger())
	groups := NewGroupService(store, nil, testValidator(), testLogger())
	ctx := context.Background()

	_, err := svc.Open(ctx, actorFor(admin), exam.ID)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	uploaded, err := svc.Upload(ctx, actorFor(admin), exam.ID, buildFileHeader(t, "Exam Rules.PDF", samplePDF()))
	require.NoError(t, err)
	require.Equal(t, "exam-rules.pdf", uploaded.FileName)
	require.Equal(t, "application/pdf", uploaded.MimeType)
	require.True(t, strings.HasPrefix(uploaded.FilePath, "/uploads/"))
	require.Len(t, uploaded.Checksum, 64)
	require.Equal(t, int64(1), countAudit(t, store, models.AuditUploadExamDocument))

	group, err := groups.Create(ctx, actorFor(admin), dto.GroupCreateRequest{Name: "Section A", ExamID: exam.ID})
	require.NoError(t, err)
	_, err = groups.AssignStudents(ctx, actorFor(admin), group.ID, dto.GroupAssignRequest{StudentIDs: []uint{member.ID}})
	require.NoError(t, err)

	doc, err := svc.Open(ctx, actorFor(member), exam.ID)
	require.NoError(t, err)
	defer doc.Content.Close()
	require.Equal(t, "exam-rules.pdf", doc.FileName)
	require.Equal(t, "application/pdf", doc.MimeType)
	content, err := io.ReadAll(doc.Content)
	require.NoError(t, err)
	require.Equal(t, samplePDF(), content)

	_, err = svc.Open(ctx, actorFor(outsider), exam.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Open(ctx, actorFor(admin), 999)
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestSanitizeFileName(t *testing.T) {
	require.Equal(t, "exam-rules.pdf", sanitizeFileName("Exam Rules.PDF"))
	require.Equal(t, "etc-passwd.bin", sanitizeFileName("../etc/passwd"))
	require.Equal(t, "notes.txt", documentFileName("/uploads/0f8fad5b-d9cb-469f-a165-70867728950e-notes.txt"))
	require.Equal(t, "notes.txt", documentFileName("https://res.cloudinary.com/demo/raw/upload/notes.txt"))
}

func TestDocumentServiceRemovesUploadWhenPersistenceFails(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	files := newMemoryStorage()
	svc := NewDocumentService(files, store, 5, testLogger())

	// Audit entries need an actor, so the transaction fails after the object is stored.
	anonymous := Actor{Role: models.RoleAdmin}
	_, err := svc.Upload(context.Background(), anonymous, exam.ID, buildFileHeader(t, "notes.pdf", samplePDF()))
	require.Error(t, err)
	require.Empty(t, files.refs())

	reloaded, err := store.Exams().GetByID(context.Background(), exam.ID)
	require.NoError(t, err)
	require.False(t, reloaded.HasDocument())
}

func TestDocumentServiceReplacesPreviousUpload(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	files := newMemoryStorage()
	svc := NewDocumentService(files, store, 5, testLogger())
	ctx := context.Background()

	_, err := svc.Upload(ctx, actorFor(admin), exam.ID, buildFileHeader(t, "draft.pdf", samplePDF()))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, actorFor(admin), exam.ID, buildFileHeader(t, "final.pdf", samplePDF()))
	require.NoError(t, err)

	require.Equal(t, []string{second.FilePath}, files.refs())
}
