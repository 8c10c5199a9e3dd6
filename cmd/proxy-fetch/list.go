package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog/log"
)

func runList(ctx context.Context, rawURI, format string) error {
	c, uri, err := connect(ctx, settings, rawURI)
	if err != nil {
		return err
	}
	defer c.Close()

	names, err := c.Lister.List(ctx, uri)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", uri, err)
	}
	if names == nil {
		return fmt.Errorf("resource not found: %s", uri)
	}
	slices.Sort(names)

	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(names); err != nil {
			return err
		}
	default:
		for _, name := range names {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", name)
		}
	}
	log.Info().Msgf("%d entries found in %s", len(names), uri)
	return nil
}
