package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/tunedeck/internal/client"
	"github.com/desertthunder/tunedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes an authenticated GET request and prints the response
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	api, err := r.Client()
	if err != nil {
		return err
	}

	r.logger.Debug("GET request", "path", path)

	resp, err := api.Get(ctx, path, nil)
	if err != nil {
		return err
	}
	return r.writeResponse(resp, cmd.Bool("pretty"))
}

// APIPost makes an authenticated POST request with a JSON body
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !json.Valid([]byte(data)) {
		return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}

	api, err := r.Client()
	if err != nil {
		return err
	}

	r.logger.Debug("POST request", "path", path)

	resp, err := api.Post(ctx, path, json.RawMessage(data))
	if err != nil {
		return err
	}
	return r.writeResponse(resp, cmd.Bool("pretty"))
}

func (r *Runner) writeResponse(resp *client.Response, pretty bool) error {
	if resp.IsJSON {
		return r.writeJSON(resp.Data, pretty)
	}
	if len(resp.Body) == 0 {
		return r.writePlain("(%d, empty body)\n", resp.Status)
	}
	if err := r.writeBytes(resp.Body); err != nil {
		return err
	}
	return r.writePlain("\n")
}
