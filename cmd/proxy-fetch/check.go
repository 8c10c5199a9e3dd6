package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/connector"
	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
)

// CheckResult represents the results of checking a set of resources
type CheckResult struct {
	Summary struct {
		Total         int   `json:"total"`
		Existing      int   `json:"existing"`
		Missing       int   `json:"missing"`
		Errors        int   `json:"errors"`
		ExistingBytes int64 `json:"existing_bytes"`
	} `json:"summary"`

	Existing []ResourceCheckResult `json:"existing,omitempty"`
	Missing  []ResourceCheckResult `json:"missing,omitempty"`
	Errors   []ResourceCheckResult `json:"errors,omitempty"`
}

// ResourceCheckResult represents the result of checking a single resource
type ResourceCheckResult struct {
	URI           string `json:"uri"`
	StatusCode    int    `json:"status_code,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	SHA1          string `json:"sha1,omitempty"`
	Error         string `json:"error,omitempty"`
}

func runCheck(ctx context.Context, rawURIs []string, format string) error {
	registry := loadTransports(settings)
	spec := connectionSpec(settings)

	result := &CheckResult{}
	result.Summary.Total = len(rawURIs)
	log.Info().Msgf("Checking %d resources", len(rawURIs))

	for _, raw := range rawURIs {
		item := checkResource(ctx, registry, spec, raw)
		switch {
		case item.Error != "":
			result.Errors = append(result.Errors, item)
			result.Summary.Errors++
		case item.StatusCode == http.StatusNotFound:
			result.Missing = append(result.Missing, item)
			result.Summary.Missing++
		default:
			result.Existing = append(result.Existing, item)
			result.Summary.Existing++
			if item.ContentLength > 0 {
				result.Summary.ExistingBytes += item.ContentLength
			}
		}
	}

	if err := outputCheckResults(os.Stdout, result, format); err != nil {
		return err
	}
	if result.Summary.Missing > 0 || result.Summary.Errors > 0 {
		return fmt.Errorf("%d missing, %d failed", result.Summary.Missing, result.Summary.Errors)
	}
	return nil
}

func checkResource(ctx context.Context, registry *connector.Registry, spec connector.ConnectionSpec, raw string) ResourceCheckResult {
	item := ResourceCheckResult{URI: raw}

	uri, err := parseURI(raw)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	c, err := registry.Connect(ctx, uri, spec)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	defer c.Close()

	metadata, err := c.Accessor.GetMetadata(ctx, uri)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			item.StatusCode = statusErr.StatusCode
		}
		item.Error = err.Error()
		return item
	}
	if metadata == nil {
		item.StatusCode = http.StatusNotFound
		return item
	}
	item.StatusCode = http.StatusOK
	item.ContentLength = metadata.ContentLength
	item.SHA1 = metadata.SHA1
	return item
}

func outputCheckResults(w io.Writer, result *CheckResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)

	case "tsv":
		fmt.Fprintf(w, "uri\tstatus\tcontent_length\tsha1\terror\n")
		for _, group := range [][]ResourceCheckResult{result.Existing, result.Missing, result.Errors} {
			for _, item := range group {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", item.URI, item.StatusCode, item.ContentLength, item.SHA1, item.Error)
			}
		}
		return nil

	case "text":
		fallthrough
	default:
		fmt.Fprintf(w, "Resource Check\n")
		fmt.Fprintf(w, "==============\n\n")
		fmt.Fprintf(w, "Summary:\n")
		fmt.Fprintf(w, "  Total: %d\n", result.Summary.Total)
		fmt.Fprintf(w, "  Existing: %d (%s)\n", result.Summary.Existing, humanize.Bytes(uint64(result.Summary.ExistingBytes)))
		fmt.Fprintf(w, "  Missing: %d\n", result.Summary.Missing)
		fmt.Fprintf(w, "  Errors: %d\n", result.Summary.Errors)

		if len(result.Missing) > 0 {
			fmt.Fprintf(w, "\nMissing:\n")
			for _, item := range result.Missing {
				fmt.Fprintf(w, "  - %s\n", item.URI)
			}
		}
		if len(result.Errors) > 0 {
			fmt.Fprintf(w, "\nErrors:\n")
			for _, item := range result.Errors {
				fmt.Fprintf(w, "  - %s: %s\n", item.URI, item.Error)
			}
		}
		return nil
	}
}
