package resource

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// ChecksumError reports content that does not match the advertised digest
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sha1 mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// VerifyingReader hashes what is read through it and, at EOF, fails with a
// *ChecksumError if the digest differs from the expected one.
type VerifyingReader struct {
	reader   io.Reader
	hasher   hash.Hash
	expected string
	read     int64
}

func NewVerifyingReader(r io.Reader, expectedSHA1 string) *VerifyingReader {
	return &VerifyingReader{
		reader:   r,
		hasher:   sha1.New(),
		expected: strings.ToLower(expectedSHA1),
	}
}

func (v *VerifyingReader) Read(p []byte) (int, error) {
	n, err := v.reader.Read(p)
	v.hasher.Write(p[:n])
	v.read += int64(n)
	if err == io.EOF {
		if actual := v.Sum(); actual != v.expected {
			return n, &ChecksumError{Expected: v.expected, Actual: actual}
		}
	}
	return n, err
}

// Sum is the hex digest of the bytes read so far
func (v *VerifyingReader) Sum() string {
	return hex.EncodeToString(v.hasher.Sum(nil))
}

// BytesRead is the number of bytes read so far
func (v *VerifyingReader) BytesRead() int64 {
	return v.read
}
