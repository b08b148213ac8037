package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/models"
)

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditEntry describes a single trail record. Failures to persist are logged and swallowed.
type auditEntry struct {
	actorID    string
	action     string
	resource   string
	resourceID string
	oldValues  interface{}
	newValues  interface{}
	ip         string
	userAgent  string
}

func recordAudit(ctx context.Context, repo auditRepository, logger *zap.Logger, entry auditEntry) {
	if repo == nil {
		return
	}
	log := &models.AuditLog{
		Action:    entry.action,
		Resource:  entry.resource,
		IPAddress: entry.ip,
		UserAgent: entry.userAgent,
	}
	if entry.actorID != "" {
		actor := entry.actorID
		log.UserID = &actor
	}
	if entry.resourceID != "" {
		id := entry.resourceID
		log.ResourceID = &id
	}
	if entry.oldValues != nil {
		log.OldValues, _ = json.Marshal(entry.oldValues)
	}
	if entry.newValues != nil {
		log.NewValues, _ = json.Marshal(entry.newValues)
	}
	if err := repo.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.action), zap.Error(err))
	}
}
