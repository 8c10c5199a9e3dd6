package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicwaller/proxy-fetch/pkg/resource"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.pom")

	written, err := writeFile(path, strings.NewReader("<project/>"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), written)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<project/>", string(data))
}

func TestWriteFile_RemovesIncompleteFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("read failure", func(t *testing.T) {
		path := filepath.Join(dir, "broken.jar")
		failing := io.MultiReader(strings.NewReader("partial"), &failingReader{err: errors.New("connection reset")})

		_, err := writeFile(path, failing)
		assert.ErrorContains(t, err, "connection reset")
		assert.NoFileExists(t, path)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		path := filepath.Join(dir, "tampered.jar")
		verifier := resource.NewVerifyingReader(strings.NewReader("tampered"), "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12")

		_, err := writeFile(path, verifier)
		var checksumErr *resource.ChecksumError
		assert.ErrorAs(t, err, &checksumErr)
		assert.NoFileExists(t, path)
	})

	t.Run("cannot create", func(t *testing.T) {
		_, err := writeFile(filepath.Join(dir, "missing", "lib.jar"), strings.NewReader("x"))
		assert.ErrorContains(t, err, "failed to create output file")
	})
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
