package main

import (
	"context"

	"github.com/desertthunder/tunedeck/internal/formatter"
	"github.com/desertthunder/tunedeck/internal/search"
	"github.com/urfave/cli/v3"
)

// Search queries the catalogue and renders the normalized buckets.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")

	api, err := r.Client()
	if err != nil {
		return err
	}

	set, err := search.Search(ctx, api, query, cmd.Int("limit"))
	if err != nil {
		return err
	}
	r.logger.Debug("search results", "query", query, "artists", len(set.Artists), "albums", len(set.Albums), "tracks", len(set.Tracks))

	if cmd.Bool("json") {
		return r.writeJSON(set, true)
	}

	format := cmd.String("format")
	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteResults(set, format, query, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d results to %s\n", set.Len(), path)
	}

	data, err := formatter.Results(set, format, query)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}
