// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// resolverd wires a cobra command: load config, set up logging, start the
// metrics listener, and run the Resolver until a shutdown signal arrives.
package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kontalk.im/resolver/internal/config"
	"kontalk.im/resolver/resolver"
)

var configPath string

// NewCommand builds the resolverd root command.
func NewCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resolverd",
		Short:         "Run the federated XMPP presence resolver",
		Version:       version,
		RunE:          runRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "resolver.yaml", "path to the YAML config file")
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("resolverd: %w", err)
	}
	setupLogger(cfg)

	r := resolver.New(cfg)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, r)
	}

	logrus.WithFields(logrus.Fields{
		"network":     cfg.Network,
		"server_name": cfg.ServerName,
		"router_addr": cfg.RouterAddr,
		"peers":       len(cfg.Peers),
	}).Info("resolverd: starting")

	err = r.Run(ctx)
	if err != nil && ctx.Err() != nil {
		logrus.Info("resolverd: shutting down")
		return nil
	}
	return err
}

func setupLogger(cfg *config.Config) {
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
		return
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func serveMetrics(addr string, r *resolver.Resolver) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Metrics.Registry, promhttp.HandlerOpts{}))
	logrus.WithField("addr", addr).Info("resolverd: serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.WithError(err).Warn("resolverd: metrics listener stopped")
	}
}
