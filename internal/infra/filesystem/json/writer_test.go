package json

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONCreatesParentsAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments", "net1", "Token.json")
	writer := NewWriter()

	require.NoError(t, writer.WriteJSON(path, map[string]string{"address": "0xAAA"}))
	require.NoError(t, writer.WriteJSON(path, map[string]string{"address": "0xBBB"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"address\": \"0xBBB\"\n}\n", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"address": "0xAAA"}`), 0644))

	var target struct {
		Address string `json:"address"`
	}
	require.NoError(t, NewReader().ReadJSON(path, &target))
	assert.Equal(t, "0xAAA", target.Address)

	err := NewReader().ReadJSON(filepath.Join(dir, "absent.json"), &target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadJSONClassifiesBrokenDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ``},
		{"truncated", `{"address": `},
		{"invalid", `{address}`},
		{"trailing content", `{"address":"0xAAA"}}}} <<<merge conflict`},
		{"second document", `{"address":"0xAAA"} {"address":"0xBBB"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "artifact.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			var target map[string]any
			err := NewReader().ReadJSON(path, &target)

			var syntaxErr *json.SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
		})
	}
}
