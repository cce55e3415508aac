package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabsort/internal/category"
	"github.com/hpungsan/tabsort/internal/errors"
	"github.com/hpungsan/tabsort/internal/state"
	"github.com/hpungsan/tabsort/internal/stats"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *engine) *cli.App {
	app := &cli.App{
		Name:    "tabsort",
		Usage:   "Category tab grouping engine",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(env),
			resolveCmd(env),
			stateCmd(env),
			pruneCmd(env),
			statsCmd(env),
			configCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd runs the MCP server explicitly.
func serveCmd(env *engine) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			if err := serve(c.Context, env); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// resolveOutput is the resolve command result.
type resolveOutput struct {
	category.Resolution
	Scores []category.CategoryScore `json:"scores,omitempty"`
}

// resolveCmd resolves the category for the given page metadata.
func resolveCmd(env *engine) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve the category for page metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Page title"},
			&cli.StringFlag{Name: "channel", Usage: "Channel name"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Page description"},
			&cli.StringFlag{Name: "keywords", Aliases: []string{"k"}, Usage: "Comma-separated page keywords"},
			&cli.StringFlag{Name: "external", Usage: "Platform category label"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Requested category (wins when set)"},
			&cli.BoolFlag{Name: "stdin", Usage: "Read metadata as JSON from stdin; flags override fields"},
		},
		Action: func(c *cli.Context) error {
			var meta category.Metadata
			if c.Bool("stdin") {
				raw, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if raw != "" {
					if err := json.Unmarshal([]byte(raw), &meta); err != nil {
						return outputError(errors.NewInvalidRequest("invalid metadata JSON: " + err.Error()))
					}
				}
			}
			if v := c.String("title"); v != "" {
				meta.Title = v
			}
			if v := c.String("channel"); v != "" {
				meta.Channel = v
			}
			if v := c.String("description"); v != "" {
				meta.Description = v
			}
			if v := parseList(c.String("keywords")); v != nil {
				meta.Keywords = v
			}
			if v := c.String("external"); v != "" {
				meta.ExternalCategory = v
			}

			settings := env.cfg.Settings
			out := resolveOutput{Resolution: category.Explain(meta, settings, c.String("category"))}
			if settings.AICategoryDetection {
				out.Scores = category.Scores(meta, settings)
			}
			return outputJSON(out)
		},
	}
}

// stateCmd prints the persisted category mapping.
func stateCmd(env *engine) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Show the persisted category to color and group mapping",
		Action: func(c *cli.Context) error {
			return outputJSON(struct {
				Entries []state.Entry `json:"entries"`
			}{Entries: env.svc.State().Snapshot().Entries()})
		},
	}
}

// pruneCmd drops every mapping entry that points at a group id.
func pruneCmd(env *engine) *cli.Command {
	return &cli.Command{
		Name:      "prune",
		Usage:     "Forget the categories mapped to a group id",
		ArgsUsage: "<group-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("group id is required"))
			}
			id, err := strconv.Atoi(c.Args().First())
			if err != nil || id <= 0 {
				return outputError(errors.NewInvalidRequest("group id must be a positive integer"))
			}
			if err := env.svc.State().PruneGroup(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(struct {
				GroupID int           `json:"group_id"`
				Entries []state.Entry        `json:"entries"`
			}{GroupID: id, Entries: env.svc.State().Snapshot().Entries()})
		},
	}
}

// statsOutput adds the derived average to the stored stats.
type statsOutput struct {
	stats.Stats
	AverageDurationMs int64 `json:"average_duration_ms"`
}

// statsCmd prints grouping statistics.
func statsCmd(env *engine) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show grouping statistics",
		Action: func(c *cli.Context) error {
			s, err := env.svc.Stats().Snapshot(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(statsOutput{Stats: s, AverageDurationMs: s.AverageDurationMs()})
		},
		Subcommands: []*cli.Command{
			{
				Name:  "reset",
				Usage: "Clear grouping statistics",
				Action: func(c *cli.Context) error {
					if err := env.svc.Stats().Reset(c.Context); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]bool{"reset": true})
				},
			},
		},
	}
}

// configCmd prints the effective configuration.
func configCmd(env *engine) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show the effective configuration",
		Action: func(c *cli.Context) error {
			return outputJSON(env.cfg)
		},
	}
}

// outputJSON writes JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var te *errors.TabsortError
	if errors.As(err, &te) {
		return cli.Exit(fmt.Sprintf("[%s] %s", te.Code, te.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseList splits a comma-separated string into a slice.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
