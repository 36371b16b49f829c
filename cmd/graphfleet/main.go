// Command graphfleet collects AWS RDS requirements and renders an
// AwsRdsInstance manifest.
//
// Usage:
//
//	graphfleet serve     # MCP server on stdio
//	graphfleet demo      # scripted collection run, prints the projections
//	graphfleet version
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Gurpartap/graphfleet/adapters/modeltest"
	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/internal/config"
	"github.com/Gurpartap/graphfleet/internal/logging"
	"github.com/Gurpartap/graphfleet/internal/mcpserver"
	"github.com/Gurpartap/graphfleet/internal/runtimewire"
	"github.com/Gurpartap/graphfleet/manifest"
	"github.com/Gurpartap/graphfleet/requirements"
	"github.com/Gurpartap/graphfleet/vfs"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graphfleet",
		Short:         "Collect AWS RDS requirements and render a manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newDemoCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the requirement and manifest tools over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			schema, err := runtimewire.NewSchema()
			if err != nil {
				return err
			}
			tools, err := runtimewire.NewTools(logger, time.Now, nil)
			if err != nil {
				return err
			}
			session, err := mcpserver.NewSession(ctx, schema, tools, []agent.Middleware{
				requirements.NewInitializer(logger),
				requirements.NewSerializer(logger),
			}, logger)
			if err != nil {
				return err
			}
			s, err := mcpserver.New(session, version)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			// stdout carries the protocol; logs stay on stderr.
			stdio := server.NewStdioServer(s)
			stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
			logger.Info("mcp server listening on stdio", "version", version)
			if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func newDemoCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted collection session and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			rt, err := runtimewire.New(runtimewire.Options{
				Config: cfg,
				Logger: logger,
				Model:  modeltest.NewScriptedModel(demoScript(name)...),
			})
			if err != nil {
				return err
			}
			result, err := rt.Start(cmd.Context(), "I need a small Postgres database for the orders service.")
			if err != nil {
				return err
			}
			return printDemo(cmd.OutOrStdout(), result.State)
		},
	}
	cmd.Flags().StringVar(&name, "name", "orders-db", "metadata name for the generated manifest")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graphfleet %s\n", version)
		},
	}
}

func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// demoScript stores several fields in one parallel step, revises one,
// then names and generates the manifest.
func demoScript(name string) []modeltest.Response {
	store := func(id, field string, value any) agent.ToolCall {
		return modeltest.Call(id, requirements.ToolStore, map[string]any{"field_name": field, "value": value})
	}
	return []modeltest.Response{
		modeltest.Calls(
			store("call-1", "engine", "postgres"),
			store("call-2", "engine_version", "15.5"),
			store("call-3", "instance_class", "db.t3.micro"),
			store("call-4", "allocated_storage_gb", 20),
		),
		modeltest.Calls(
			store("call-5", "instance_class", "db.t3.small"),
			store("call-6", "multi_az", true),
		),
		modeltest.Calls(
			modeltest.Call("call-7", manifest.ToolSetMetadata, map[string]any{
				"name":   name,
				"labels": map[string]any{"team": "orders"},
			}),
		),
		modeltest.Calls(modeltest.Call("call-8", manifest.ToolGenerate, map[string]any{})),
		modeltest.Final("The manifest is ready at " + manifest.Path + "."),
	}
}

func printDemo(w io.Writer, run agent.RunState) error {
	files := vfs.FromValues(run.Values)
	for _, path := range []string{requirements.Path, manifest.Path} {
		text, ok := vfs.TextOf(files[path])
		if !ok {
			return fmt.Errorf("%s was not written", path)
		}
		if _, err := fmt.Fprintf(w, "--- %s\n%s\n", path, text); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "--- run %s %s after %d steps\n", run.ID, run.Status, run.Step)
	return err
}
