package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathForDeletion(t *testing.T) {
	pv := NewPathValidator()

	tests := []struct {
		name     string
		path     string
		errorMsg string
	}{
		{"absolute temp file", "/tmp/diskscope-test-file.txt", ""},
		{"log file under var", "/var/log/syslog.1", ""},
		{"trash file with spaces and parens", "/tmp/Trash/files/report (1).pdf", ""},
		{"empty path", "", "empty"},
		{"relative path", "relative/path.txt", "must be absolute"},
		{"dot dot path", "/tmp/../etc/passwd", "suspicious"},
		{"trailing slash", "/tmp/dir/", "suspicious"},
		{"newline", "/tmp/a\nb", "control characters"},
		{"root", "/", "protected"},
		{"protected dir", "/etc", "protected"},
		{"direct child of protected", "/usr/bin", "critical system path"},
		{"var log itself", "/var/log", "critical system path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pv.ValidatePathForDeletion(tt.path)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidatePathForDeletionResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "etc-link")
	require.NoError(t, os.Symlink("/etc", link))

	err := NewPathValidator().ValidatePathForDeletion(link)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protected")
}

func TestAddProtectedPath(t *testing.T) {
	pv := NewPathValidator()
	dir := t.TempDir()
	pv.AddProtectedPath(dir + "/")

	assert.Error(t, pv.ValidatePathForDeletion(filepath.Clean(dir)))
	assert.Error(t, pv.ValidatePathForDeletion(filepath.Join(dir, "keep.txt")))
	assert.NoError(t, pv.ValidatePathForDeletion(filepath.Join(dir, "sub", "file.txt")))
}

func TestValidateGlobPattern(t *testing.T) {
	assert.NoError(t, ValidateGlobPattern("**/*.keep"))
	assert.NoError(t, ValidateGlobPattern("*/important/*"))
	assert.Error(t, ValidateGlobPattern("../**"))
	assert.Error(t, ValidateGlobPattern("[unclosed"))
}
