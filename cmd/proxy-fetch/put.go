package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/resource"
)

func runPut(ctx context.Context, path, rawURI string) error {
	local, err := resource.NewFileResource(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	c, uri, err := connect(ctx, settings, rawURI)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Uploader.Upload(ctx, local, uri); err != nil {
		return err
	}
	log.Info().Stringer("uri", uri).Msgf("Uploaded %s", humanize.Bytes(uint64(local.Size())))
	return nil
}
