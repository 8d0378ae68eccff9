package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/bgnn/bgnn"
	"github.com/YuminosukeSato/bgnn/bgnn/plot"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
	"github.com/YuminosukeSato/bgnn/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type fitCmdConfig struct {
	*rootCmdConfig
	configPath string
	history    string
	plot       string
	metrics    string
}

func fitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &fitCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a Boost-GNN model",
		Long:  `Fit a Boost-GNN model from the files named in a YAML run configuration and write the metric history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadRunConfig(config.configPath)
			if err != nil {
				return err
			}
			config.override(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			_, err = runFit(ctx, cfg)
			return err
		},
	}
	cmd.Flags().StringVarP(&config.configPath, "config", "c", "bgnn.yaml", "run configuration file")
	cmd.Flags().StringVar(&config.history, "history", "", "write the metric history as JSON to this file")
	cmd.Flags().StringVar(&config.plot, "plot", "", "draw the early stopping metric to this image file")
	cmd.Flags().StringVar(&config.metrics, "metrics", "", "write Prometheus metrics in text format to this file")
	return cmd
}

// override applies command line outputs over the configured ones. Flag paths
// are relative to the working directory, not to the config file.
func (c *fitCmdConfig) override(cfg *RunConfig) {
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{c.history, &cfg.Output.History},
		{c.plot, &cfg.Output.Plot},
		{c.metrics, &cfg.Output.Metrics},
	} {
		if o.flag == "" {
			continue
		}
		if abs, err := filepath.Abs(o.flag); err == nil {
			*o.dst = abs
		} else {
			*o.dst = o.flag
		}
	}
}

// runFit loads the inputs, trains the predictor and writes the outputs.
func runFit(ctx context.Context, cfg *RunConfig) (*bgnn.History, error) {
	runID := uuid.NewString()
	logger := log.GetLoggerWithName("cmd.fit").With(log.EstimatorIDKey, runID)

	in, err := loadInputs(cfg)
	if err != nil {
		return nil, err
	}
	data, err := preprocess(cfg.Preprocessing, cfg.Data.CategoricalFeatures, in.data)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess features")
	}

	reg := prometheus.NewRegistry()
	tcfg := telemetry.DefaultConfig()
	tcfg.Registry = reg
	tcfg.ConstLabels = prometheus.Labels{"run_id": runID}
	observer, err := telemetry.NewObserver(tcfg)
	if err != nil {
		return nil, err
	}

	p, err := bgnn.New(
		bgnn.WithConfig(cfg.Model),
		bgnn.WithNetwork(bgnn.GCNNetwork(cfg.Network.HiddenDim, cfg.Network.Dropout, cfg.Model.RandomSeed)),
		bgnn.WithLogger(logger),
		bgnn.WithObserver(observer),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("fitting", log.TaskKey, string(cfg.Model.Task), log.RandomSeedKey, cfg.Model.RandomSeed)
	history, fitErr := p.Fit(ctx, in.graph, data, cfg.fitConfig())
	if history == nil {
		return nil, fitErr
	}

	if err := writeOutputs(cfg, history, reg); err != nil {
		return history, err
	}
	return history, fitErr
}

func writeOutputs(cfg *RunConfig, history *bgnn.History, reg *prometheus.Registry) error {
	if path := cfg.resolve(cfg.Output.History); path != "" {
		data, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode history")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "write history %s", path)
		}
	}
	if path := cfg.resolve(cfg.Output.Plot); path != "" {
		opts := plot.DefaultOptions()
		opts.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := plot.SaveHistory(history, history.MetricName, path, opts); err != nil {
			return err
		}
	}
	if path := cfg.resolve(cfg.Output.Metrics); path != "" {
		if err := telemetry.WriteTextfile(path, reg); err != nil {
			return err
		}
	}
	return nil
}
