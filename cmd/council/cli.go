package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/mcp"
	"github.com/hpungsan/council/internal/ops"
	"github.com/hpungsan/council/internal/web"
)

// maxStdinBytes bounds problems and questions piped via stdin.
const maxStdinBytes = 64 << 10

// newCLIApp creates the CLI application with all commands.
func newCLIApp(ctrl *ops.Controller, logger *zap.Logger) *cli.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &cli.App{
		Name:    "council",
		Usage:   "Consult a round table of AI mentors",
		Version: Version,
		Commands: []*cli.Command{
			advisorsCmd(ctrl),
			askCmd(ctrl),
			toggleCmd(ctrl),
			beginCmd(ctrl),
			followUpCmd(ctrl),
			viewCmd(ctrl, "adjust", "Return to panel selection, keeping the transcript", (*ops.Controller).AdjustPanel),
			resetCmd(ctrl),
			viewCmd(ctrl, "clear", "Clear the transcript, keeping problem and panel", (*ops.Controller).ClearTranscript),
			statusCmd(ctrl),
			historyCmd(ctrl),
			openCmd(ctrl),
			deleteCmd(ctrl),
			exportCmd(ctrl),
			archiveExportCmd(ctrl),
			archiveImportCmd(ctrl),
			serveCmd(ctrl, logger),
			mcpCmd(ctrl),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// advisorsCmd creates the advisors command.
func advisorsCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "advisors",
		Usage: "List all advisors with their panel state",
		Action: func(c *cli.Context) error {
			return outputJSON(ctrl.Advisors(c.Context))
		},
	}
}

// askCmd creates the ask command.
func askCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Submit a problem and wait for the recommended panel (reads stdin when no argument is given)",
		ArgsUsage: "[problem]",
		Action: func(c *cli.Context) error {
			problem, err := textArg(c)
			if err != nil {
				return outputError(err)
			}

			if _, err := ctrl.SubmitProblem(c.Context, ops.SubmitInput{Problem: problem}); err != nil {
				return outputError(err)
			}
			if err := ctrl.WaitRecommendation(c.Context); err != nil {
				return outputError(err)
			}
			return outputJSON(ctrl.Status(c.Context))
		},
	}
}

// toggleCmd creates the toggle command. Several ids are toggled in order.
func toggleCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Add or remove advisors from the panel",
		ArgsUsage: "<persona-id>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("at least one persona id is required"))
			}

			var output *ops.ToggleOutput
			for _, id := range c.Args().Slice() {
				var err error
				output, err = ctrl.Toggle(c.Context, ops.ToggleInput{PersonaID: id})
				if err != nil {
					return outputError(err)
				}
			}
			return outputJSON(output)
		},
	}
}

// beginCmd creates the begin command.
func beginCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "begin",
		Usage: "Start the round table: every panel member answers the problem",
		Action: func(c *cli.Context) error {
			return outputView(ctrl.BeginRoundTable(c.Context))
		},
	}
}

// followUpCmd creates the follow-up command.
func followUpCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:      "follow-up",
		Usage:     "Ask the panel a follow-up question (reads stdin when no argument is given)",
		ArgsUsage: "[question]",
		Action: func(c *cli.Context) error {
			question, err := textArg(c)
			if err != nil {
				return outputError(err)
			}
			return outputView(ctrl.FollowUp(c.Context, ops.FollowUpInput{Question: question}))
		},
	}
}

// viewCmd creates an argument-less command that returns the session view.
func viewCmd(ctrl *ops.Controller, name, usage string, fn func(*ops.Controller, context.Context) (*ops.View, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			return outputView(fn(ctrl, c.Context))
		},
	}
}

// resetCmd creates the reset command.
func resetCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Start over on the welcome screen (archived sessions are kept)",
		Action: func(c *cli.Context) error {
			return outputJSON(ctrl.Reset(c.Context))
		},
	}
}

// statusCmd creates the status command.
func statusCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the active session",
		Action: func(c *cli.Context) error {
			return outputJSON(ctrl.Status(c.Context))
		},
	}
}

// historyCmd creates the history command.
func historyCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List archived sessions, most recently updated first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			return outputJSON(ctrl.History(c.Context, ops.HistoryInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}))
		},
	}
}

// openCmd creates the open command.
func openCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Reopen an archived session as the active one",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one session id is required"))
			}
			return outputView(ctrl.OpenSession(c.Context, ops.OpenInput{ID: c.Args().First()}))
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an archived session",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one session id is required"))
			}
			output, err := ctrl.DeleteSession(c.Context, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the active transcript to a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: ops.FormatText, Usage: "Output format: text|html"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.council/exports/...)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ctrl.ExportTranscript(c.Context, ops.ExportInput{
				Format: c.String("format"),
				Path:   c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// archiveExportCmd creates the archive-export command.
func archiveExportCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "archive-export",
		Usage: "Export all archived sessions to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.council/exports/...)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ctrl.ExportArchive(c.Context, ops.ArchiveExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// archiveImportCmd creates the archive-import command.
func archiveImportCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "archive-import",
		Usage: "Import archived sessions from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Input file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ctrl.ImportArchive(c.Context, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(ctrl *ops.Controller, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Bind address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := ctrl.Config()
			bind := cfg.HTTPBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := cfg.HTTPPort
			if c.IsSet("port") {
				port = c.Int("port")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(ctrl, logger.Named("web"), bind, port)
			if err := web.Run(ctx, srv, logger.Named("web")); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command. Piping stdin with no arguments does the same.
func mcpCmd(ctrl *ops.Controller) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the council tools over MCP stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(ctrl, ctrl.Config(), Version); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func outputView(view *ops.View, err error) error {
	if err != nil {
		return outputError(err)
	}
	return outputJSON(view)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CouncilError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// textArg returns the positional arguments joined by spaces, or stdin when
// there are none and stdin is piped.
func textArg(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if !stdinHasData() {
		return "", nil
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return text, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
