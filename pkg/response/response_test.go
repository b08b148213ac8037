package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreatedEnvelope(t *testing.T) {
	c, w := newContext()
	Created(c, "Course created successfully", gin.H{"id": "c-1"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Course created successfully", body["message"])
	assert.Equal(t, "c-1", body["data"].(map[string]interface{})["id"])
}

func TestErrorEnvelopeWithDetails(t *testing.T) {
	c, w := newContext()
	err := appErrors.WithDetails(appErrors.ErrValidation, map[string]string{"title": "title is required"})
	Error(c, err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation failed", body["message"])
	assert.Equal(t, "title is required", body["data"].(map[string]interface{})["title"])
}

func TestErrorEnvelopeUnknownError(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("db down"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal server error", body["message"])
	assert.Nil(t, body["data"])
}
