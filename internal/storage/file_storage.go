package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

// Purpose groups uploads on disk and decides which content types are accepted.
type Purpose string

const (
	PurposeDeliverable  Purpose = "deliverable"
	PurposeEvidence     Purpose = "evidence"
	PurposeVerification Purpose = "verification"
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// allowedTypes per purpose. Deliverables may be archives; KYC documents may not.
var allowedTypes = map[Purpose]map[string]bool{
	PurposeDeliverable:  union(imageTypes, "application/pdf", "application/zip"),
	PurposeEvidence:     union(imageTypes, "application/pdf"),
	PurposeVerification: union(imageTypes, "application/pdf"),
}

func union(base map[string]bool, extra ...string) map[string]bool {
	out := make(map[string]bool, len(base)+len(extra))
	for k := range base {
		out[k] = true
	}
	for _, k := range extra {
		out[k] = true
	}
	return out
}

func ParsePurpose(v string) (Purpose, error) {
	p := Purpose(v)
	if _, ok := allowedTypes[p]; !ok {
		return "", apperror.Validation("purpose must be deliverable, evidence or verification")
	}
	return p, nil
}

// StoredFile describes a saved upload. URL is what clients attach to milestones,
// disputes and verification requests.
type StoredFile struct {
	Name        string `json:"name"`
	Path        string `json:"-"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// FileStorage writes uploads under rootPath/<purpose>/<user id>/.
type FileStorage struct {
	rootPath       string
	publicURL      string
	maxUploadBytes int64
	now            func() time.Time
}

func NewFileStorage(rootPath, publicURL string, maxUploadMB int64) (*FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", rootPath, err)
	}
	return &FileStorage{
		rootPath:       rootPath,
		publicURL:      strings.TrimRight(publicURL, "/"),
		maxUploadBytes: maxUploadMB * 1024 * 1024,
		now:            time.Now,
	}, nil
}

func (s *FileStorage) Root() string {
	return s.rootPath
}

// Save sniffs the content type from the first bytes, never from the name or headers.
func (s *FileStorage) Save(ctx context.Context, userID uuid.UUID, purpose Purpose, originalName string, r io.Reader) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allowed, ok := allowedTypes[purpose]
	if !ok {
		return nil, apperror.Validation("unknown upload purpose")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "failed to read upload")
	}
	head = head[:n]
	if n == 0 {
		return nil, apperror.Validation("file is empty")
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return nil, apperror.Validation("could not detect the file type")
	}
	if !allowed[kind.MIME.Value] {
		return nil, apperror.Validation(fmt.Sprintf("file type %s is not accepted for %s uploads", kind.MIME.Value, purpose))
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%d_%s.%s", s.now().UnixNano(), uuid.NewString()[:8], kind.Extension)

	dir := filepath.Join(s.rootPath, string(purpose), userID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create user dir: %w", err)
	}

	target := filepath.Join(dir, fileName)
	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("storage: create file: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("storage: write file: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tmp)
		return nil, apperror.Validation(fmt.Sprintf("file exceeds the %d byte limit", s.maxUploadBytes))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("storage: close file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return nil, fmt.Errorf("storage: rename file: %w", err)
	}

	rel := path.Join(string(purpose), userID.String(), fileName)
	return &StoredFile{
		Name:        safeName,
		Path:        rel,
		URL:         s.publicURL + "/" + rel,
		ContentType: kind.MIME.Value,
		Size:        written,
	}, nil
}

func (s *FileStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean("/" + relativePath)
	target := filepath.Join(s.rootPath, clean)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	return name
}
