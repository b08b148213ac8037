package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/:id", append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })...)
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	validator := stubValidator{"good": {UserID: "u1", Role: models.RoleStudent}}
	r := newRouter(JWT(validator))

	assert.Equal(t, http.StatusOK, doGet(r, "/users/u1", "good").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/users/u1", "bad").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/users/u1", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "Token good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid authorization header")
}

func TestOptionalJWT(t *testing.T) {
	validator := stubValidator{"good": {UserID: "u1", Role: models.RoleStudent}}
	var seen *models.JWTClaims
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", OptionalJWT(validator), func(c *gin.Context) {
		seen, _ = Claims(c)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, doGet(r, "/", "bad").Code)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusOK, doGet(r, "/", "good").Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestRBAC(t *testing.T) {
	validator := stubValidator{
		"student": {UserID: "s1", Role: models.RoleStudent},
		"admin":   {UserID: "a1", Role: models.RoleAdmin},
	}
	r := newRouter(JWT(validator), RBAC(string(models.RoleAdmin), Self))

	assert.Equal(t, http.StatusOK, doGet(r, "/users/x", "admin").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/users/s1", "student").Code)
	w := doGet(r, "/users/x", "student")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient permissions")

	unauthenticated := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, doGet(unauthenticated, "/users/x", "").Code)
}

type observedRequest struct {
	method, path string
	status       int
}

type recordingObserver struct{ seen []observedRequest }

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.seen = append(o.seen, observedRequest{method, path, status})
}

func TestMetrics(t *testing.T) {
	observer := &recordingObserver{}
	r := newRouter()
	r.Use(Metrics(observer))
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	doGet(r, "/courses/42", "")
	doGet(r, "/nowhere", "")
	require.Len(t, observer.seen, 2)
	assert.Equal(t, observedRequest{http.MethodGet, "/courses/:id", http.StatusAccepted}, observer.seen[0])
	assert.Equal(t, "unmatched", observer.seen[1].path)
}

type auditSink struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func TestAudit(t *testing.T) {
	sink := &auditSink{}
	validator := stubValidator{"staff": {UserID: "i1", Role: models.RoleInstructor}}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/reports/:id", JWT(validator), Audit(sink, nil, models.AuditActionReportExport, "report"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	doGet(r, "/reports/c1?format=csv", "staff")
	doGet(r, "/reports/c1?fail=1", "staff")
	require.Len(t, sink.logs, 1)
	entry := sink.logs[0]
	assert.Equal(t, models.AuditActionReportExport, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "i1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "c1", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), "format=csv")

	sink.err = errors.New("db down")
	assert.Equal(t, http.StatusOK, doGet(r, "/reports/c1", "staff").Code)
}
