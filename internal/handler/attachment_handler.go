package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/internal/service"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
	"github.com/noah-isme/course-management-api/pkg/response"
)

type attachmentService interface {
	Upload(ctx context.Context, actor *models.JWTClaims, filename string, size int64, r io.ReadSeeker) (*dto.AttachmentResponse, error)
	DownloadURL(ctx context.Context, actor *models.JWTClaims, key string) (*dto.AttachmentResponse, error)
	Open(ctx context.Context, token string) (*service.AttachmentDownload, error)
}

// AttachmentHandler accepts submission uploads and serves signed downloads.
type AttachmentHandler struct {
	service attachmentService
}

// NewAttachmentHandler constructs an AttachmentHandler.
func NewAttachmentHandler(svc attachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a submission attachment
// @Description The returned fileUrl is what a submission references
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, map[string]string{"file": "file is required"}))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read upload"))
		return
	}
	defer file.Close()

	attachment, err := h.service.Upload(c.Request.Context(), claimsFromContext(c), header.Filename, header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Attachment uploaded", attachment)
}

// Link godoc
// @Summary Sign a fresh download link for a stored attachment
// @Tags Attachments
// @Produce json
// @Param key query string true "Attachment fileUrl"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/url [get]
func (h *AttachmentHandler) Link(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, map[string]string{"key": "key is required"}))
		return
	}
	attachment, err := h.service.DownloadURL(c.Request.Context(), claimsFromContext(c), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Download link issued", attachment)
}

// Download godoc
// @Summary Download an attachment through a signed link
// @Tags Attachments
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.service.Open(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read attachment"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
		"Cache-Control":       "private, no-store",
	})
}
