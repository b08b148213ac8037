package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/handler"
	"github.com/noah-isme/course-management-api/internal/middleware"
	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-management-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-management-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Courses     *handler.CourseHandler
	Lessons     *handler.LessonHandler
	Enrollments *handler.EnrollmentHandler
	Assignments *handler.AssignmentHandler
	Submissions *handler.SubmissionHandler
	Attachments *handler.AttachmentHandler
	Reports     *handler.ReportHandler
	Metrics     *handler.MetricsHandler
}

// Options configures cross-cutting router behavior.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	ServiceName    string
	EnableTracing  bool
	EnableMetrics  bool
	EnableDocs     bool
	Logger         *zap.Logger
	Tokens         middleware.TokenValidator
	Audit          middleware.AuditWriter
	Observer       middleware.RequestObserver
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.EnableTracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	if opts.EnableMetrics {
		r.Use(middleware.Metrics(opts.Observer))
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	// signed links work without a session; a bearer token only tags the access log
	api.GET("/attachments/download", middleware.OptionalJWT(opts.Tokens), h.Attachments.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))

	staff := middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin)
	student := middleware.RequireRoles(models.RoleStudent)
	admin := middleware.RequireRoles(models.RoleAdmin)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	users := secured.Group("/users")
	users.GET("", admin, h.Users.List)
	users.GET("/role/:role", staff, h.Users.ListByRole)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), h.Users.Get)
	users.PUT("/:id/role", admin, h.Users.UpdateRole)
	users.PUT("/:id/status", admin, h.Users.UpdateStatus)

	courses := secured.Group("/courses")
	courses.POST("", staff, h.Courses.Create)
	courses.GET("", h.Courses.List)
	courses.GET("/published", h.Courses.ListPublished)
	courses.GET("/search", h.Courses.Search)
	courses.GET("/count", h.Courses.Count)
	courses.GET("/my-courses", staff, h.Courses.ListMine)
	courses.GET("/instructor/:instructorId", h.Courses.ListByInstructor)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", staff, h.Courses.Update)
	courses.DELETE("/:id", staff, h.Courses.Delete)
	courses.POST("/:id/publish", staff, h.Courses.Publish)
	courses.POST("/:id/unpublish", staff, h.Courses.Unpublish)
	courses.GET("/:id/roster", staff, middleware.Audit(opts.Audit, opts.Logger, models.AuditActionReportExport, "course_roster"), h.Reports.CourseRoster)

	lessons := secured.Group("/lessons")
	lessons.POST("", staff, h.Lessons.Create)
	lessons.GET("/course/:courseId", h.Lessons.ListByCourse)
	lessons.PUT("/course/:courseId/reorder", staff, h.Lessons.Reorder)
	lessons.GET("/:id", h.Lessons.Get)
	lessons.PUT("/:id", staff, h.Lessons.Update)
	lessons.DELETE("/:id", staff, h.Lessons.Delete)

	enrollments := secured.Group("/enrollments")
	enrollments.POST("", student, h.Enrollments.Enroll)
	enrollments.GET("", admin, h.Enrollments.List)
	enrollments.GET("/my-enrollments", student, h.Enrollments.ListMine)
	enrollments.GET("/check", h.Enrollments.Check)
	enrollments.GET("/student/:studentId", staff, h.Enrollments.ListByStudent)
	enrollments.GET("/student/:studentId/count", h.Enrollments.CountByStudent)
	enrollments.GET("/course/:courseId", staff, h.Enrollments.ListByCourse)
	enrollments.GET("/course/:courseId/count", h.Enrollments.CountByCourse)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.DELETE("/:id", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), h.Enrollments.Unenroll)
	enrollments.PUT("/:id/progress", student, h.Enrollments.UpdateProgress)
	enrollments.POST("/:id/complete", student, h.Enrollments.Complete)

	assignments := secured.Group("/assignments")
	assignments.POST("", staff, h.Assignments.Create)
	assignments.GET("", h.Assignments.List)
	assignments.GET("/my-assignments", student, h.Assignments.ListMine)
	assignments.GET("/overdue", student, h.Assignments.ListOverdue)
	assignments.GET("/course/:courseId", h.Assignments.ListByCourse)
	assignments.GET("/:id", h.Assignments.Get)
	assignments.PUT("/:id", staff, h.Assignments.Update)
	assignments.DELETE("/:id", staff, h.Assignments.Delete)
	assignments.POST("/:id/submissions", student, h.Submissions.Submit)
	assignments.GET("/:id/submissions", staff, h.Submissions.ListByAssignment)
	assignments.GET("/:id/submissions/me", student, h.Submissions.GetMine)
	assignments.GET("/:id/submissions/student/:studentId", staff, h.Submissions.GetForStudent)
	assignments.GET("/:id/gradebook", staff, middleware.Audit(opts.Audit, opts.Logger, models.AuditActionReportExport, "gradebook"), h.Reports.Gradebook)

	submissions := secured.Group("/submissions")
	submissions.GET("/my-submissions", student, h.Submissions.ListMine)
	submissions.GET("/:id", h.Submissions.Get)
	submissions.PUT("/:id/grade", staff, h.Submissions.Grade)

	attachments := secured.Group("/attachments")
	attachments.POST("", student, middleware.Audit(opts.Audit, opts.Logger, models.AuditActionUpload, "attachment"), h.Attachments.Upload)
	attachments.GET("/url", h.Attachments.Link)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "route not found", "data": nil})
	})

	return r
}
