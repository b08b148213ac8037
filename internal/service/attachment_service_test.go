package service

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
	"github.com/noah-isme/course-management-api/pkg/storage"
)

func newAttachmentFixture(t *testing.T, cfg AttachmentConfig) *AttachmentService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("attachment-secret", time.Minute)
	return NewAttachmentService(store, signer, cfg, zap.NewNop())
}

func tokenFrom(t *testing.T, downloadURL string) string {
	t.Helper()
	parsed, err := url.Parse(downloadURL)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestAttachmentServiceUploadAndOpen(t *testing.T) {
	svc := newAttachmentFixture(t, AttachmentConfig{APIPrefix: "/api"})
	student := &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	payload := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	ctx := context.Background()

	resp, err := svc.Upload(ctx, student, "essay.pdf", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.FileURL, "student-1/"))
	assert.True(t, strings.HasSuffix(resp.FileURL, ".pdf"))
	assert.Equal(t, "application/pdf", resp.MimeType)
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "/api/attachments/download?token="))

	download, err := svc.Open(ctx, tokenFrom(t, resp.DownloadURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "application/pdf", download.ContentType)
	stored, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	_, err = svc.Open(ctx, "tampered.token.value.sig")
	requireAppError(t, err, appErrors.ErrForbidden, "")
}

func TestAttachmentServiceUploadRejections(t *testing.T) {
	svc := newAttachmentFixture(t, AttachmentConfig{MaxFileSize: 64, AllowedMIMEs: []string{"application/pdf", "text/plain"}})
	student := &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	ctx := context.Background()

	elf := append([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1}, make([]byte, 32)...)
	_, err := svc.Upload(ctx, student, "run.pdf", int64(len(elf)), bytes.NewReader(elf))
	requireAppError(t, err, appErrors.ErrInvalidOperation, "")

	big := bytes.Repeat([]byte("a"), 65)
	_, err = svc.Upload(ctx, student, "big.txt", int64(len(big)), bytes.NewReader(big))
	requireAppError(t, err, appErrors.ErrInvalidOperation, "File exceeds maximum size of 64 bytes")

	_, err = svc.Upload(ctx, student, "empty.txt", 0, bytes.NewReader(nil))
	requireAppError(t, err, appErrors.ErrInvalidOperation, "File is empty")

	_, err = svc.Upload(ctx, &models.JWTClaims{UserID: "i-1", Role: models.RoleInstructor}, "notes.txt", 5, bytes.NewReader([]byte("notes")))
	requireAppError(t, err, appErrors.ErrForbidden, "")
}

func TestAttachmentServiceDownloadURL(t *testing.T) {
	svc := newAttachmentFixture(t, AttachmentConfig{})
	student := &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	other := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	instructor := &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor}
	ctx := context.Background()

	resp, err := svc.Upload(ctx, student, "notes.txt", 11, bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.FileURL, ".txt"))

	signed, err := svc.DownloadURL(ctx, instructor, resp.FileURL)
	require.NoError(t, err)
	assert.Equal(t, resp.FileURL, signed.FileURL)

	_, err = svc.DownloadURL(ctx, other, resp.FileURL)
	requireAppError(t, err, appErrors.ErrForbidden, "")

	_, err = svc.DownloadURL(ctx, student, "student-1/missing.pdf")
	requireAppError(t, err, appErrors.ErrNotFound, "Attachment not found")
}

func TestAttachmentServiceDownloadURLRejectsDotSegments(t *testing.T) {
	svc := newAttachmentFixture(t, AttachmentConfig{})
	owner := &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	intruder := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	ctx := context.Background()

	resp, err := svc.Upload(ctx, owner, "notes.txt", 11, bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	file := strings.TrimPrefix(resp.FileURL, "student-1/")

	for _, key := range []string{
		"student-2/../student-1/" + file,
		"student-2/./../student-1/" + file,
		" student-2/../student-1/" + file + " ",
	} {
		_, err = svc.DownloadURL(ctx, intruder, key)
		requireAppError(t, err, appErrors.ErrForbidden, "attachment belongs to another student")
	}

	_, err = svc.DownloadURL(ctx, intruder, "student-2/../../etc/passwd")
	requireAppError(t, err, appErrors.ErrForbidden, "")

	signed, err := svc.DownloadURL(ctx, owner, "student-1/./"+file)
	require.NoError(t, err)
	assert.Equal(t, resp.FileURL, signed.FileURL)
}

func TestAttachmentServiceUploadRemovesFileWhenSigningFails(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewAttachmentService(store, storage.NewSignedURLSigner("", time.Minute), AttachmentConfig{}, zap.NewNop())
	student := &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	payload := []byte("plain text answer")

	_, err = svc.Upload(context.Background(), student, "answer.txt", int64(len(payload)), bytes.NewReader(payload))
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "student-1"))
	if err == nil {
		assert.Empty(t, entries)
	}
}
