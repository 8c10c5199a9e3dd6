package resource

import (
	"fmt"
	"io"
	"os"
)

// LocalResource is content that can be read more than once, such as a file
// to upload.
type LocalResource interface {
	// Size is the number of bytes Open yields, or -1 when unknown
	Size() int64
	Open() (io.ReadCloser, error)
}

var _ LocalResource = &FileResource{}

type FileResource struct {
	path string
	size int64
}

// NewFileResource checks that path is a regular file and records its size
func NewFileResource(path string) (*FileResource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: path is a directory", path)
	}
	return &FileResource{path: path, size: info.Size()}, nil
}

func (f *FileResource) Path() string {
	return f.path
}

func (f *FileResource) Size() int64 {
	return f.size
}

func (f *FileResource) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}
