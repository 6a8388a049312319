package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type item struct {
	Path string `json:"path" yaml:"path"`
	Size uint64 `json:"size" yaml:"size"`
}

func TestEnvelope_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   Envelope
		want string
	}{
		{
			name: "list",
			in:   Success("Cache files retrieved successfully", List[item]{{Path: "/c/a", Size: 3}}),
			want: `{"status":"success","message":"Cache files retrieved successfully","data":[{"path":"/c/a","size":3}]}`,
		},
		{
			name: "nil list is empty array",
			in:   Success("ok", List[item](nil)),
			want: `{"status":"success","message":"ok","data":[]}`,
		},
		{
			name: "object",
			in:   Success("ok", Object[item]{V: item{Path: "/x", Size: 1}}),
			want: `{"status":"success","message":"ok","data":{"path":"/x","size":1}}`,
		},
		{
			name: "text",
			in:   Success("Cleared 2 log files", Count(2)),
			want: `{"status":"success","message":"Cleared 2 log files","data":"2"}`,
		},
		{
			name: "error",
			in:   Error("File not found"),
			want: `{"status":"error","message":"File not found","data":null}`,
		},
		{
			name: "info with nil payload",
			in:   Info("No cache to clear", nil),
			want: `{"status":"info","message":"No cache to clear","data":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestEnvelope_YAML(t *testing.T) {
	out, err := yaml.Marshal(Success("ok", Object[item]{V: item{Path: "/x", Size: 1}}))
	require.NoError(t, err)
	assert.Equal(t, "status: success\nmessage: ok\ndata:\n    path: /x\n    size: 1\n", string(out))
}

func TestEnvelope_Err(t *testing.T) {
	assert.NoError(t, Success("ok", nil).Err())
	assert.NoError(t, Info("fine", nil).Err())
	assert.EqualError(t, Errorf("Failed to remove %s: %s", "/a", "denied").Err(), "Failed to remove /a: denied")
}
