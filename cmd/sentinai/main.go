// Package main provides the sentinai command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	agentmetrics "sentinai/pkg/agent/middleware/metrics"
	"sentinai/pkg/api"
	"sentinai/pkg/capability/ticket"
	"sentinai/pkg/config"
	"sentinai/pkg/logx"
	"sentinai/pkg/metrics"
	"sentinai/pkg/orchestrator"
	"sentinai/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "sentinai",
		Short:         "SentinAI support orchestrator",
		Long:          "SentinAI routes support requests through an LLM reasoning loop over audio, document and ticket tools, with a deterministic fallback while the provider is rate limited.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: $"+config.EnvConfigPath+")")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newExecCmd(&configPath),
		newTrainCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}

// setup loads config, configures logging and builds an orchestrator whose
// metrics register on reg.
func setup(configPath string, reg prometheus.Registerer) (*config.Config, *orchestrator.Orchestrator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, logx.Wrap(err, "failed to load config")
	}
	logx.Configure(cfg.Log.Level, cfg.Log.Pretty)
	logx.Debugf("config loaded: provider=%s model=%s memory=%t", cfg.LLM.Provider, cfg.LLM.Model, cfg.Memory.Enabled)

	deps := orchestrator.DefaultDeps(&cfg, metrics.New(reg), agentmetrics.NewPrometheusRecorder(reg))
	return &cfg, orchestrator.New(&cfg, deps), nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			cfg, orch, err := setup(*configPath, reg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := orch.Close(); cerr != nil {
					logx.Warnf("failed to close orchestrator: %v", cerr)
				}
			}()

			logx.Infof("🚀 Starting SentinAI %s", version.Version)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Build eagerly so configuration problems show up at startup.
			// A failure here is not fatal; the next request retries it.
			if res := orch.Initialize(ctx); !res.OK() {
				logx.Warnf("⚠️  %s", res.Message)
			}

			return api.NewServer(orch, cfg.Server, reg).Run(ctx)
		},
	}
}

func newExecCmd(configPath *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "exec [input...]",
		Short: "Execute one request and print the JSON response",
		Long:  "Execute one request. With no arguments the input is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				input = string(raw)
			}

			_, orch, err := setup(*configPath, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer func() { _ = orch.Close() }()

			resp := orch.Execute(cmd.Context(), orchestrator.Request{Input: input, SessionID: sessionID})
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
			if !resp.OK() {
				return errors.New(resp.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id for conversation history")
	return cmd
}

func newTrainCmd(configPath *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the ticket classifier on the built-in dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				out = cfg.Capabilities.ClassifierModel
			}

			samples := ticket.DefaultDataset()
			c := ticket.New()
			if err := c.Train(samples); err != nil {
				return logx.Errorf("failed to train classifier: %w", err)
			}
			if err := c.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Trained on %d samples, model saved to %s\n", len(samples), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Model output path (default: capabilities.classifier_model)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sentinai %s\n", version.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", version.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", version.Date)
		},
	}
}

