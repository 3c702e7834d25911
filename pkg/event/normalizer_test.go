package event

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitping/gitping/pkg/types"
)

type staticHint string

func (s staticHint) AnyConnectedBaseURL() string { return string(s) }

func TestEventTypeFromHeader(t *testing.T) {
	tests := []struct {
		header string
		want   types.EventType
	}{
		{"Push Hook", types.EventTypePush},
		{"Merge Request Hook", types.EventTypeMergeRequest},
		{"Issue Hook", types.EventTypeIssue},
		{"Pipeline Hook", types.EventTypePipeline},
		{"Tag Push Hook", types.EventTypeGeneric},
		{"", types.EventTypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, EventTypeFromHeader(tt.header))
		})
	}
}

func TestNormalizePushEvent(t *testing.T) {
	body := `{
		"object_kind": "push",
		"ref": "refs/heads/main",
		"user_id": 42,
		"user_name": "Jamie Doe",
		"project": {"name": "demo", "web_url": "http://gitlab-0/group/demo"},
		"commits": [{"id": "abc1234def", "message": "fix build"}]
	}`
	p := types.ParsePayload(json.RawMessage(body))

	headers := http.Header{}
	headers.Set(HeaderEvent, "Push Hook")
	headers.Set(HeaderInstance, "https://gitlab.example.com/")

	n := NewNormalizer([]string{"gitlab-0"}, nil)
	info := n.Normalize(p, headers)

	assert.Equal(t, types.EventTypePush, info.EventType)
	assert.Equal(t, "demo", info.Project)
	assert.Equal(t, "refs/heads/main", info.Branch)
	assert.Equal(t, "Jamie Doe", info.Actor)
	assert.Equal(t, "42", info.ActorID)
	assert.Equal(t, "https://gitlab.example.com", info.InstanceBaseURL)
	assert.False(t, info.Timestamp.IsZero())
}

func TestNormalizeFallbacks(t *testing.T) {
	t.Run("repository name when project missing", func(t *testing.T) {
		p := types.ParsePayload(json.RawMessage(`{"repository": {"name": "legacy"}}`))
		n := NewNormalizer(nil, nil)
		info := n.Normalize(p, http.Header{})
		assert.Equal(t, "legacy", info.Project)
	})

	t.Run("username when name missing", func(t *testing.T) {
		p := types.ParsePayload(json.RawMessage(`{"user_username": "jdoe"}`))
		n := NewNormalizer(nil, nil)
		info := n.Normalize(p, http.Header{})
		assert.Equal(t, "jdoe", info.Actor)
	})

	t.Run("malformed payload degrades to placeholders", func(t *testing.T) {
		p := types.ParsePayload(json.RawMessage(`not json at all`))
		n := NewNormalizer(nil, nil)
		info := n.Normalize(p, http.Header{})
		assert.Equal(t, "unknown", info.Project)
		assert.Equal(t, "Unknown", info.Actor)
		assert.Equal(t, types.EventTypeGeneric, info.EventType)
	})

	t.Run("branch from object attributes", func(t *testing.T) {
		p := types.ParsePayload(json.RawMessage(`{"object_attributes": {"ref": "release"}}`))
		n := NewNormalizer(nil, nil)
		info := n.Normalize(p, http.Header{})
		assert.Equal(t, "release", info.Branch)
	})
}

func TestResolveInstanceURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		patterns []string
		hint     string
		want     string
	}{
		{
			name:     "external header wins",
			raw:      "https://gitlab.example.com",
			patterns: []string{"gitlab-0"},
			hint:     "https://other.example.com",
			want:     "https://gitlab.example.com",
		},
		{
			name:     "internal header replaced by hint",
			raw:      "http://gitlab-0",
			patterns: []string{"gitlab-0"},
			hint:     "https://gitlab.example.com",
			want:     "https://gitlab.example.com",
		},
		{
			name:     "empty header replaced by hint",
			raw:      "",
			patterns: []string{"gitlab-0"},
			hint:     "https://gitlab.example.com",
			want:     "https://gitlab.example.com",
		},
		{
			name:     "internal header kept when no hint",
			raw:      "http://gitlab-0",
			patterns: []string{"gitlab-0"},
			hint:     "",
			want:     "http://gitlab-0",
		},
		{
			name:     "trailing slash trimmed",
			raw:      "https://gitlab.example.com/",
			patterns: []string{"gitlab-0"},
			hint:     "",
			want:     "https://gitlab.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.patterns, staticHint(tt.hint))
			assert.Equal(t, tt.want, n.ResolveInstanceURL(tt.raw))
		})
	}
}

func TestNormalizeWithNilHinter(t *testing.T) {
	n := NewNormalizer([]string{"gitlab-0"}, nil)
	require.NotPanics(t, func() {
		assert.Equal(t, "http://gitlab-0", n.ResolveInstanceURL("http://gitlab-0"))
	})
}
