package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecoord/app"
	"github.com/kilianp07/dronecoord/config"
	"github.com/kilianp07/dronecoord/infra/logger"
)

type options struct {
	cfgPath string
	json    bool
}

// NewRootCmd builds the dronecoord command tree. Without a subcommand it
// serves the API like "serve".
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "dronecoord",
		Short:         "Drone operations coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return serve(cmd, opts) },
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (yaml or json)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	root.AddCommand(
		serveCmd(opts),
		pilotsCmd(opts),
		dronesCmd(opts),
		missionsCmd(opts),
		assignCmd(opts),
		reassignCmd(opts),
		conflictsCmd(opts),
		auditCmd(opts),
	)
	return root
}

// Execute runs the CLI.
func Execute() error { return NewRootCmd().Execute() }

func serveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, notifications and scheduled conflict scans",
		RunE:  func(cmd *cobra.Command, _ []string) error { return serve(cmd, opts) },
	}
}

func serve(cmd *cobra.Command, opts *options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return withService(opts, func(svc *app.Service) error {
		return svc.Run(ctx)
	})
}

// withService loads the configuration, builds the service, runs fn and
// closes the service.
func withService(opts *options, fn func(*app.Service) error) error {
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(svc)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
