package service

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/observability"
	"github.com/noah-isme/exam-hall-api/internal/repository"
	"github.com/noah-isme/exam-hall-api/pkg/storage"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrFileRequired indicates the multipart request carried no file.
	ErrFileRequired = errors.New("file is required")
	// ErrDocumentNotFound indicates the exam has no stored document.
	ErrDocumentNotFound = errors.New("exam document not found")
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// Document is an exam document opened for streaming. Callers must close Content.
type Document struct {
	Content  io.ReadCloser
	FileName string
	MimeType string
}

// DocumentService stores and serves exam documents.
type DocumentService interface {
	Upload(ctx context.Context, actor Actor, examID uint, file *multipart.FileHeader) (dto.DocumentUploadResponse, error)
	Open(ctx context.Context, actor Actor, examID uint) (Document, error)
}

type documentService struct {
	storage FileStorage
	store   repository.Store
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewDocumentService constructs the exam document service.
func NewDocumentService(storage FileStorage, store repository.Store, maxSizeMB int, logger zerolog.Logger) DocumentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &documentService{
		storage: storage,
		store:   store,
		logger:  logger.With().Str("component", "document_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/exam-hall-api/internal/service/document"),
	}
}

func (s *documentService) Upload(ctx context.Context, actor Actor, examID uint, file *multipart.FileHeader) (dto.DocumentUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exam_document.store", trace.WithAttributes(
		attribute.Int("exam.id", int(examID)),
		attribute.Int64("upload.max_bytes", s.maxSize),
	))
	defer span.End()

	fail := func(err error, reason, status string) (dto.DocumentUploadResponse, error) {
		if reason != "" {
			observability.UploadRejections().WithLabelValues(reason).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.DocumentUploadResponse{}, err
	}

	if file == nil {
		return fail(ErrFileRequired, "", "validation failed")
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if _, err := s.store.Exams().GetByID(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(ErrExamNotFound, "", "exam not found")
		}
		return fail(err, "", "lookup failed")
	}

	if file.Size > s.maxSize {
		return fail(ErrUploadTooLarge, "size", "payload too large")
	}

	handle, err := file.Open()
	if err != nil {
		return fail(err, "", "open failed")
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return fail(err, "", "read failed")
	}
	if int64(buf.Len()) > s.maxSize {
		return fail(ErrUploadTooLarge, "size", "payload too large")
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType) {
		return fail(ErrUploadTypeNotAllowed, "type", "type not allowed")
	}

	if err := s.scan(buf.Bytes(), fileType); err != nil {
		return fail(err, "scan", "scan failed")
	}

	checksum := sha256.Sum256(buf.Bytes())
	sanitizedName := sanitizeFileName(file.Filename)

	ref, err := s.storage.Upload(ctx, sanitizedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fail(err, "storage", "storage failed")
	}

	var previous string
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		exam, err := tx.Exams().GetByID(ctx, examID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExamNotFound
			}
			return err
		}
		previous = exam.DocumentPath

		if err := tx.Exams().SetDocument(ctx, examID, ref); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExamNotFound
			}
			return err
		}
		return appendAudit(ctx, tx.AuditLogs(), AuditEntry{
			ActorID: actor.ID,
			Action:  models.AuditUploadExamDocument,
			Details: fmt.Sprintf("Uploaded document %s", sanitizedName),
			Metadata: map[string]interface{}{
				"exam_id":   examID,
				"file_name": sanitizedName,
				"mime_type": fileType,
				"size":      buf.Len(),
			},
		})
	})
	if err != nil {
		s.discard(ctx, ref, "orphaned upload")
		return fail(err, "", "persistence failed")
	}
	if previous != "" && previous != ref {
		s.discard(ctx, previous, "replaced document")
	}

	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Uint("exam_id", examID).Str("mime_type", fileType).Int("size", buf.Len()).Msg("exam document stored")

	return dto.DocumentUploadResponse{
		ExamID:    examID,
		FilePath:  ref,
		FileName:  sanitizedName,
		MimeType:  fileType,
		SizeBytes: int64(buf.Len()),
		Checksum:  hex.EncodeToString(checksum[:]),
	}, nil
}

// discard removes a stored object that no exam references. Failures are only logged.
func (s *documentService) discard(ctx context.Context, ref, reason string) {
	if err := s.storage.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn().Err(err).Str("ref", ref).Str("reason", reason).Msg("failed to remove stored document")
	}
}

func (s *documentService) Open(ctx context.Context, actor Actor, examID uint) (Document, error) {
	exam, err := s.store.Exams().GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, ErrExamNotFound
		}
		return Document{}, err
	}

	if !actor.IsAdmin() {
		member, err := s.store.Groups().IsMemberForExam(ctx, actor.ID, examID)
		if err != nil {
			return Document{}, err
		}
		if !member {
			return Document{}, ErrForbidden
		}
	}

	if !exam.HasDocument() {
		return Document{}, ErrDocumentNotFound
	}

	content, err := s.storage.Open(ctx, exam.DocumentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Document{}, ErrDocumentNotFound
		}
		s.logger.Error().Err(err).Uint("exam_id", examID).Msg("failed to open exam document")
		return Document{}, err
	}

	reader := bufio.NewReaderSize(content, 3072)
	head, _ := reader.Peek(3072)
	detected := mimetype.Detect(head).String()

	return Document{
		Content:  readCloser{Reader: reader, Closer: content},
		FileName: documentFileName(exam.DocumentPath),
		MimeType: detected,
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (s *documentService) scan(payload []byte, mime string) error {
	if mime == "application/zip" {
		reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
		if err != nil {
			return ErrUploadScanFailed
		}
		var totalUncompressed uint64
		for _, f := range reader.File {
			totalUncompressed += f.UncompressedSize64
			if totalUncompressed > uint64(s.maxSize*20) {
				return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
			}
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("document-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

// documentFileName strips the storage prefix from a reference, leaving the uploaded name.
func documentFileName(ref string) string {
	name := path.Base(ref)
	// Stored names are "<uuid>-<name>".
	if len(name) > 37 && name[36] == '-' {
		name = name[37:]
	}
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if lower == "application/x-zip-compressed" {
		return "application/zip"
	}
	return lower
}

func isAllowedType(m string) bool {
	if strings.HasPrefix(m, "image/") {
		return true
	}
	switch m {
	case "application/pdf",
		"application/zip",
		"text/plain",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return true
	default:
		return false
	}
}
