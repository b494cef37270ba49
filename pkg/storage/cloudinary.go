package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Cloudinary stores documents as raw Cloudinary assets and references them by secure URL.
type Cloudinary struct {
	client *cloudinary.Cloudinary
	folder string
	http   *http.Client
	logger zerolog.Logger
}

// NewCloudinary constructs a Cloudinary backend.
func NewCloudinary(cfg CloudinaryConfig, logger zerolog.Logger) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Cloudinary{
		client: cld,
		folder: cfg.Folder,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger.With().Str("component", "cloudinary_storage").Logger(),
	}, nil
}

// Upload sends the file to Cloudinary and returns its secure URL.
func (c *Cloudinary) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       strings.Trim(c.folder, "/"),
		PublicID:     buildPublicID(name),
		ResourceType: "raw",
	}

	result, err := c.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	c.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return result.SecureURL, nil
}

// Open downloads the asset behind a secure URL.
func (c *Cloudinary) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("reference %q is not a cloudinary url: %w", ref, ErrNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		resp.Body.Close()
		return nil, fmt.Errorf("cloudinary responded with status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Delete destroys the raw asset behind a secure URL.
func (c *Cloudinary) Delete(ctx context.Context, ref string) error {
	publicID, err := cloudinaryPublicID(ref)
	if err != nil {
		return err
	}

	result, err := c.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if result.Result == "not found" {
		return ErrNotFound
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to destroy asset: %s", result.Error.Message)
	}

	c.logger.Info().Str("public_id", publicID).Msg("file removed from cloudinary")
	return nil
}

// cloudinaryPublicID extracts the public id from a delivery URL such as
// https://res.cloudinary.com/<cloud>/raw/upload/v1700000000/exams/documents/notes-1.pdf.
func cloudinaryPublicID(ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Scheme != "https" {
		return "", fmt.Errorf("reference %q is not a cloudinary url: %w", ref, ErrNotFound)
	}

	_, rest, ok := strings.Cut(parsed.Path, "/upload/")
	if !ok {
		return "", fmt.Errorf("reference %q is not a cloudinary url: %w", ref, ErrNotFound)
	}

	if version, remainder, found := strings.Cut(rest, "/"); found && len(version) > 1 && version[0] == 'v' {
		if _, err := strconv.ParseUint(version[1:], 10, 64); err == nil {
			rest = remainder
		}
	}
	if rest == "" {
		return "", ErrNotFound
	}
	return rest, nil
}

func buildPublicID(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "document"
	}

	// raw assets keep their extension in the public id.
	return fmt.Sprintf("%s-%d%s", base, time.Now().Unix(), strings.ToLower(ext))
}
