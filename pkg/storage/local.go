package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// localPrefix marks references produced by the local backend.
const localPrefix = "/uploads/"

// Local stores documents in a directory on disk.
type Local struct {
	dir    string
	logger zerolog.Logger
}

// NewLocal ensures the directory exists and returns a disk backend rooted at it.
func NewLocal(dir string, logger zerolog.Logger) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("local storage directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Local{
		dir:    dir,
		logger: logger.With().Str("component", "local_storage").Logger(),
	}, nil
}

// Upload writes the reader to a new file and returns its /uploads/ reference.
func (l *Local) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	object := objectName(name)
	target := filepath.Join(l.dir, object)

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	l.logger.Info().Str("object", object).Msg("file stored on disk")

	return localPrefix + object, nil
}

// Open returns a reader for a reference produced by Upload.
func (l *Local) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the file behind a reference. Missing files report ErrNotFound.
func (l *Local) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := l.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}

	l.logger.Info().Str("object", filepath.Base(target)).Msg("file removed from disk")
	return nil
}

// resolve maps a reference onto a file inside the upload directory. Only the base name
// is used so references cannot escape it.
func (l *Local) resolve(ref string) (string, error) {
	if !strings.HasPrefix(ref, localPrefix) {
		return "", fmt.Errorf("reference %q is not a local upload: %w", ref, ErrNotFound)
	}

	object := path.Base(strings.TrimPrefix(ref, localPrefix))
	if object == "." || object == "/" || object == "" {
		return "", ErrNotFound
	}
	return filepath.Join(l.dir, object), nil
}
