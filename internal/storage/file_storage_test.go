package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

var (
	pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n")
)

func newStorage(t *testing.T, maxMB int64) *FileStorage {
	t.Helper()
	s, err := NewFileStorage(t.TempDir(), "http://localhost:8080/uploads/", maxMB)
	require.NoError(t, err)
	return s
}

func TestSaveSniffsContentType(t *testing.T) {
	s := newStorage(t, 1)
	userID := uuid.New()
	body := append(append([]byte{}, pdfHeader...), bytes.Repeat([]byte("x"), 2048)...)

	f, err := s.Save(context.Background(), userID, PurposeEvidence, "../../etc/contract.png", bytes.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, "contract.png", f.Name)
	assert.Equal(t, int64(len(body)), f.Size)
	assert.Equal(t, ".pdf", filepath.Ext(f.Path), "the extension follows the sniffed type")
	assert.Contains(t, f.URL, "http://localhost:8080/uploads/evidence/"+userID.String()+"/")

	stored, err := os.ReadFile(filepath.Join(s.Root(), f.Path))
	require.NoError(t, err)
	assert.Equal(t, body, stored)

	require.NoError(t, s.Delete(context.Background(), f.Path))
	_, err = os.Stat(filepath.Join(s.Root(), f.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRejects(t *testing.T) {
	s := newStorage(t, 1)
	ctx := context.Background()
	zipHeader := append([]byte{'P', 'K', 0x03, 0x04, 0x14, 0, 0, 0, 0x08, 0}, make([]byte, 64)...)

	tests := []struct {
		name    string
		purpose Purpose
		body    []byte
	}{
		{"empty", PurposeDeliverable, nil},
		{"plain text", PurposeDeliverable, []byte("just some notes")},
		{"zip as kyc document", PurposeVerification, zipHeader},
		{"too large", PurposeDeliverable, append(append([]byte{}, pngHeader...), make([]byte, 1024*1024)...)},
		{"unknown purpose", Purpose("avatar"), pngHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(ctx, uuid.New(), tt.purpose, "upload", bytes.NewReader(tt.body))
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}

	_, err := s.Save(ctx, uuid.New(), PurposeDeliverable, "site.zip", bytes.NewReader(zipHeader))
	assert.NoError(t, err, "archives are fine as deliverables")
}

func TestParsePurpose(t *testing.T) {
	p, err := ParsePurpose("verification")
	require.NoError(t, err)
	assert.Equal(t, PurposeVerification, p)

	_, err = ParsePurpose("avatar")
	assert.Error(t, err)
}
