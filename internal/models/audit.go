package models

import "time"

// Audit actions recorded for security relevant and catalog changing operations.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionRegister       = "REGISTER"
	AuditActionTokenRefresh   = "TOKEN_REFRESH"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionUserRole       = "USER_ROLE_UPDATE"
	AuditActionUserStatus     = "USER_STATUS_UPDATE"
	AuditActionCourseCreate   = "COURSE_CREATE"
	AuditActionCourseUpdate   = "COURSE_UPDATE"
	AuditActionCourseDelete   = "COURSE_DELETE"
	AuditActionCoursePublish  = "COURSE_PUBLISH"
	AuditActionLessonReorder  = "LESSON_REORDER"
	AuditActionEnroll         = "ENROLL"
	AuditActionUnenroll       = "UNENROLL"
	AuditActionGrade          = "SUBMISSION_GRADE"
	AuditActionReportExport   = "REPORT_EXPORT"
	AuditActionUpload         = "ATTACHMENT_UPLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
