package chatcli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_readAttachment(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o600))

	a, err := readAttachment(p)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", a.Filename)
	assert.Contains(t, a.ContentType, "text/plain")
	assert.Equal(t, []byte("hello"), a.Data)

	_, err = readAttachment(dir)
	require.Error(t, err)
	_, err = readAttachment(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
