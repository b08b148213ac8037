package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocRegistered(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Info  map[string]string          `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	assert.Equal(t, "Course Management API", parsed.Info["title"])
	assert.Contains(t, parsed.Paths, "/api/lessons/course/{courseId}/reorder")
	assert.Contains(t, parsed.Paths, "/api/assignments/{id}/submissions")
}
