package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

const defaultMaxAttachmentSize int64 = 10 << 20

var defaultAttachmentMIMEs = []string{"application/pdf", "application/zip", "text/plain", "image/png", "image/jpeg"}

type attachmentStorage interface {
	SaveStream(key string, r io.Reader) (string, error)
	Open(key string) (*os.File, error)
	Exists(key string) bool
	Delete(key string) error
}

type urlSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// AttachmentConfig bounds accepted uploads.
type AttachmentConfig struct {
	APIPrefix    string
	MaxFileSize  int64
	AllowedMIMEs []string
}

// AttachmentDownload is an opened attachment ready to stream.
type AttachmentDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// AttachmentService stores submission files and hands out signed download links.
type AttachmentService struct {
	storage attachmentStorage
	signer  urlSigner
	cfg     AttachmentConfig
	logger  *zap.Logger
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(storage attachmentStorage, signer urlSigner, cfg AttachmentConfig, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxAttachmentSize
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = defaultAttachmentMIMEs
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	return &AttachmentService{storage: storage, signer: signer, cfg: cfg, logger: logger}
}

// Upload sniffs, validates and stores a student's file. The returned FileURL is the value to submit.
func (s *AttachmentService) Upload(ctx context.Context, actor *models.JWTClaims, filename string, size int64, r io.ReadSeeker) (*dto.AttachmentResponse, error) {
	if err := authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, invalidOperation("File is empty")
	}
	if size > s.cfg.MaxFileSize {
		return nil, invalidOperation(fmt.Sprintf("File exceeds maximum size of %d bytes", s.cfg.MaxFileSize))
	}

	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, internalError(err, "failed to inspect file")
	}
	if !s.allowed(mtype) {
		return nil, invalidOperation(fmt.Sprintf("File type %s is not allowed", mtype.String()))
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, internalError(err, "failed to rewind file")
	}

	key := path.Join(actor.UserID, uuid.NewString()+mtype.Extension())
	if _, err := s.storage.SaveStream(key, io.LimitReader(r, s.cfg.MaxFileSize)); err != nil {
		return nil, internalError(err, "failed to store file")
	}
	s.logger.Info("attachment stored",
		zap.String("user_id", actor.UserID),
		zap.String("key", key),
		zap.String("original_name", filepath.Base(filename)),
		zap.String("mime", mtype.String()),
	)

	resp, err := s.sign(actor.UserID, key)
	if err != nil {
		if rmErr := s.storage.Delete(key); rmErr != nil {
			s.logger.Warn("orphaned attachment", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, err
	}
	resp.MimeType = mtype.String()
	resp.SizeBytes = size
	return resp, nil
}

// DownloadURL signs a fresh link for a stored file. Students may only sign their own uploads.
func (s *AttachmentService) DownloadURL(ctx context.Context, actor *models.JWTClaims, key string) (*dto.AttachmentResponse, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	// ownership is checked against the canonical key
	key = path.Clean(strings.TrimSpace(key))
	if actor.Role == models.RoleStudent && !strings.HasPrefix(key, actor.UserID+"/") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attachment belongs to another student")
	}
	if !s.storage.Exists(key) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Attachment not found")
	}
	return s.sign(actor.UserID, key)
}

// Open validates a signed token and opens the referenced file.
func (s *AttachmentService) Open(ctx context.Context, token string) (*AttachmentDownload, error) {
	_, key, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Attachment not found")
		}
		return nil, internalError(err, "failed to open attachment")
	}
	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectReader(file); err == nil {
		contentType = mtype.String()
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, internalError(err, "failed to rewind attachment")
	}
	return &AttachmentDownload{
		File:        file,
		Filename:    path.Base(key),
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *AttachmentService) allowed(mtype *mimetype.MIME) bool {
	for _, candidate := range s.cfg.AllowedMIMEs {
		if mtype.Is(strings.TrimSpace(candidate)) {
			return true
		}
	}
	return false
}

func (s *AttachmentService) sign(ownerID, key string) (*dto.AttachmentResponse, error) {
	token, expiresAt, err := s.signer.Generate(ownerID, key)
	if err != nil {
		return nil, internalError(err, "failed to sign download link")
	}
	return &dto.AttachmentResponse{
		FileURL:     key,
		DownloadURL: fmt.Sprintf("%s/attachments/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), url.QueryEscape(token)),
		ExpiresAt:   expiresAt,
	}, nil
}
