package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"appforge/internal/gateway/entity"
	"appforge/internal/gateway/repository/artifact"
	"appforge/internal/gateway/run"
	"appforge/internal/types"
)

type generateOptions struct {
	server string
	out    string
}

func installGenerateCmd(a *App) {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   `generate "<prompt>"`,
		Short: "Generate an app on a running server and print or save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &generateClient{
				http:   http.DefaultClient,
				server: opts.server,
				log:    a.logger,
			}
			rec, err := c.generate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), rec, opts.out)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8081", "base URL of the appforge server")
	cmd.Flags().StringVar(&opts.out, "out", "", "directory to write the generated files into")
	a.cmd.AddCommand(cmd)
}

type generateClient struct {
	http   *http.Client
	server string
	log    zerolog.Logger
}

// generate posts prompt and follows the stream until the complete frame.
func (c *generateClient) generate(ctx context.Context, prompt string) (entity.GenerationRecord, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return entity.GenerationRecord{}, err
	}
	url := strings.TrimRight(c.server, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return entity.GenerationRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return entity.GenerationRecord{}, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.GenerationRecord{}, responseError(resp)
	}

	var appID int64
	d := run.NewDecoder(resp.Body)
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			if appID != 0 {
				return entity.GenerationRecord{}, fmt.Errorf("stream ended before completion; poll /api/apps/%d for the result", appID)
			}
			return entity.GenerationRecord{}, errors.New("stream ended before completion")
		}
		if err != nil {
			return entity.GenerationRecord{}, err
		}
		switch f.Type {
		case run.FrameStatus:
			c.log.Info().Str("step", f.Step).Msg("generating")
		case run.FrameAppInfo:
			appID = f.AppID
			c.log.Info().Str("app_name", f.AppName).Int64("app_id", f.AppID).Msg("app identified")
		case run.FrameFiles:
			c.log.Debug().Int("files", len(f.Files)).Msg("files received")
		case run.FrameError:
			return entity.GenerationRecord{}, fmt.Errorf("generation failed: %s", f.Message)
		case run.FrameComplete:
			if f.App == nil {
				return entity.GenerationRecord{}, errors.New("complete frame without app")
			}
			return *f.App, nil
		}
	}
}

func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

// report prints a summary and, when outDir is set, writes the files under
// outDir/<slug>.
func report(w io.Writer, rec entity.GenerationRecord, outDir string) error {
	fmt.Fprintf(w, "%s (#%d): %s\n", rec.AppName, rec.ID, rec.Description)
	fmt.Fprintf(w, "%d files, %d environment variables\n", len(rec.Files), len(rec.EnvVars))
	if outDir == "" {
		for _, f := range rec.Files {
			fmt.Fprintf(w, "  %s\n", f.Path)
		}
		return nil
	}
	slug := types.Slug(rec.AppName)
	if slug == "" {
		slug = fmt.Sprintf("app-%d", rec.ID)
	}
	files := append([]types.FileBundle(nil), rec.Files...)
	if rec.DeploymentInstructions != "" {
		files = append(files, types.FileBundle{Path: "DEPLOYMENT.md", Content: rec.DeploymentInstructions, Language: "markdown"})
	}
	n, err := artifact.WriteBundles(context.Background(), artifact.NewDiskStore(outDir), slug, files)
	if err != nil {
		return fmt.Errorf("write files: %w", err)
	}
	fmt.Fprintf(w, "wrote %d files to %s/%s\n", n, strings.TrimRight(outDir, "/"), slug)
	return nil
}
