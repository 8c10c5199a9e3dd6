package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/resource"
)

func runGet(ctx context.Context, rawURI, output string, verify bool) error {
	c, uri, err := connect(ctx, settings, rawURI)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Accessor.Open(ctx, uri)
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("resource not found: %s", uri)
	}
	defer c.Accessor.Release(res)

	stream, err := res.OpenStream()
	if err != nil {
		return err
	}
	metadata := res.Metadata()
	var verifier *resource.VerifyingReader
	if verify && metadata.HasChecksum() {
		verifier = resource.NewVerifyingReader(stream, metadata.SHA1)
		stream = verifier
	}

	start := time.Now()
	var written int64
	if output == "" {
		written, err = io.Copy(os.Stdout, stream)
	} else {
		written, err = writeFile(output, stream)
	}
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", uri, err)
	}

	event := log.Info().
		Stringer("uri", uri).
		Int64("bytes", written).
		Dur("elapsed", time.Since(start))
	if verifier != nil {
		event = event.Str("sha1", verifier.Sum())
	}
	event.Msgf("Downloaded %s", humanize.Bytes(uint64(written)))
	return nil
}

// writeFile copies r to path. A partial or unverified file is removed.
func writeFile(path string, r io.Reader) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	written, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", path).Msg("Failed to remove incomplete file")
		}
		return written, err
	}
	return written, nil
}

func runRaw(ctx context.Context, rawURI string) error {
	c, uri, err := connect(ctx, settings, rawURI)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Accessor.GetRawResource(ctx, uri)
	if err != nil {
		return err
	}
	defer c.Accessor.Release(res)

	fmt.Fprintf(os.Stderr, "%d %s\n", res.StatusCode(), res.StatusText())
	stream, err := res.OpenStream()
	if err != nil {
		return err
	}
	_, err = io.Copy(os.Stdout, stream)
	return err
}

// MetadataOutput is the printed form of resource.Metadata
type MetadataOutput struct {
	URI                string    `json:"uri"`
	LastModified       time.Time `json:"last_modified,omitzero"`
	LastModifiedMillis int64     `json:"last_modified_millis"`
	ContentLength      int64     `json:"content_length"`
	ContentType        string    `json:"content_type,omitempty"`
	ETag               string    `json:"etag,omitempty"`
	SHA1               string    `json:"sha1,omitempty"`
}

func newMetadataOutput(m resource.Metadata) MetadataOutput {
	return MetadataOutput{
		URI:                m.Location.String(),
		LastModified:       m.LastModified,
		LastModifiedMillis: m.LastModifiedMillis(),
		ContentLength:      m.ContentLength,
		ContentType:        m.ContentType,
		ETag:               m.ETag,
		SHA1:               m.SHA1,
	}
}

func runHead(ctx context.Context, rawURI, format string) error {
	c, uri, err := connect(ctx, settings, rawURI)
	if err != nil {
		return err
	}
	defer c.Close()

	metadata, err := c.Accessor.GetMetadata(ctx, uri)
	if err != nil {
		return err
	}
	if metadata == nil {
		return fmt.Errorf("resource not found: %s", uri)
	}
	return outputMetadata(os.Stdout, newMetadataOutput(*metadata), format)
}

func outputMetadata(w io.Writer, m MetadataOutput, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(m)

	case "tsv":
		fmt.Fprintf(w, "field\tvalue\n")
		fmt.Fprintf(w, "uri\t%s\n", m.URI)
		fmt.Fprintf(w, "last_modified_millis\t%d\n", m.LastModifiedMillis)
		fmt.Fprintf(w, "content_length\t%d\n", m.ContentLength)
		fmt.Fprintf(w, "content_type\t%s\n", m.ContentType)
		fmt.Fprintf(w, "etag\t%s\n", m.ETag)
		fmt.Fprintf(w, "sha1\t%s\n", m.SHA1)
		return nil

	case "text":
		fallthrough
	default:
		fmt.Fprintf(w, "URI: %s\n", m.URI)
		if !m.LastModified.IsZero() {
			fmt.Fprintf(w, "Last Modified: %s (%s)\n",
				m.LastModified.Format("2006-01-02 15:04:05 MST"), humanize.Time(m.LastModified))
		}
		if m.ContentLength >= 0 {
			fmt.Fprintf(w, "Size: %s (%d bytes)\n", humanize.Bytes(uint64(m.ContentLength)), m.ContentLength)
		} else {
			fmt.Fprintf(w, "Size: unknown\n")
		}
		if m.ContentType != "" {
			fmt.Fprintf(w, "Content Type: %s\n", m.ContentType)
		}
		if m.ETag != "" {
			fmt.Fprintf(w, "ETag: %s\n", m.ETag)
		}
		if m.SHA1 != "" {
			fmt.Fprintf(w, "SHA-1: %s\n", m.SHA1)
		}
		return nil
	}
}
