package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/framectl/internal/config"
	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/repl"
	"github.com/danmuck/framectl/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// connFlags are the per-invocation overrides applied on top of the config file.
type connFlags struct {
	configPath  string
	host        string
	port        int
	insecure    bool
	serverName  string
	caFile      string
	readTimeout time.Duration
	metricsFile string
}

func newRootCmd() *cobra.Command {
	flags := &connFlags{}
	root := &cobra.Command{
		Use:           "framectl",
		Short:         "framectl - interactive TLS client for framed and packed binary messages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath, "config file (optional)")

	root.AddCommand(newFrameCmd(flags))
	root.AddCommand(newPacketCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	return root
}

func bindConnFlags(cmd *cobra.Command, flags *connFlags) {
	cmd.Flags().StringVar(&flags.host, "host", "", "server host (overrides config)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "server port (overrides config)")
	cmd.Flags().BoolVar(&flags.insecure, "insecure", false, "skip certificate and hostname verification (testing only)")
	cmd.Flags().StringVar(&flags.serverName, "server-name", "", "name to verify in the server certificate")
	cmd.Flags().StringVar(&flags.caFile, "ca-file", "", "PEM bundle trusted for the server certificate")
	cmd.Flags().DurationVar(&flags.readTimeout, "read-timeout", 0, "max wait for one reply frame (0 waits indefinitely)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write session metrics in Prometheus text format on exit")
}

// finishSession logs the session totals and writes the optional textfile.
func finishSession(loop string, flags *connFlags, metrics *observability.SessionMetrics, runErr error) error {
	metrics.LogSummary(log.Logger, loop)
	if flags.metricsFile != "" {
		if err := metrics.WriteTextfile(flags.metricsFile); err != nil && runErr == nil {
			return err
		}
	}
	return runErr
}

// resolveConfig loads the config file and applies only the flags the user set.
func resolveConfig(cmd *cobra.Command, flags *connFlags) (config.Config, error) {
	cfg, err := config.LoadOptional(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	set := cmd.Flags().Changed
	if set("host") {
		cfg.Transport.Host = flags.host
	}
	if set("port") {
		cfg.Transport.Port = flags.port
	}
	if set("insecure") {
		cfg.Transport.TLS.InsecureSkipVerify = flags.insecure
	}
	if set("server-name") {
		cfg.Transport.TLS.ServerName = flags.serverName
	}
	if set("ca-file") {
		cfg.Transport.TLS.CAFile = flags.caFile
	}
	if set("read-timeout") {
		cfg.Transport.ReadTimeout = flags.readTimeout
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newFrameCmd(flags *connFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Send |msg_id|len|payload| frames and print each server reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			conn, err := transport.Dial(ctx, cfg.Transport)
			if err != nil {
				return err
			}
			opts := repl.DefaultFrameOptions()
			opts.Target = cfg.Transport.Address()
			opts.Policy = cfg.FramePolicy
			opts.Limits = cfg.Limits
			opts.Metrics = observability.NewSessionMetrics("frame")
			runErr := repl.NewFrameLoop(conn, cmd.InOrStdin(), cmd.OutOrStdout(), opts).Run(ctx)
			return finishSession("frame", flags, opts.Metrics, runErr)
		},
	}
	bindConnFlags(cmd, flags)
	return cmd
}

func newPacketCmd(flags *connFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packet",
		Short: "Send integer lists and a string as one big-endian packet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			conn, err := transport.Dial(ctx, cfg.Transport)
			if err != nil {
				return err
			}
			opts := repl.DefaultPacketOptions()
			opts.Target = cfg.Transport.Address()
			opts.Policy = cfg.PacketPolicy
			opts.Metrics = observability.NewSessionMetrics("packet")
			runErr := repl.NewPacketLoop(conn, cmd.InOrStdin(), cmd.OutOrStdout(), opts).Run(ctx)
			return finishSession("packet", flags, opts.Metrics, runErr)
		},
	}
	bindConnFlags(cmd, flags)
	return cmd
}

func newConfigCmd(flags *connFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check a framectl config file",
	}

	var output string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config template with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(output, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVar(&output, "output", config.DefaultPath, "template destination")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the config file and report the resolved target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s target=%s mode=%s insecure=%t\n",
				flags.configPath,
				cfg.Transport.Address(),
				transport.NormalizeSecurityMode(cfg.Transport.SecurityMode),
				cfg.Transport.TLS.InsecureSkipVerify,
			)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
