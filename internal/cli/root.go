// Package cli implements the expediente command line: offline analysis of
// expediente files and direct queries against the vigencia rules.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"expediente/internal/expediente/analysis"
	"expediente/internal/platform/config"
	"expediente/internal/platform/logger"
	"expediente/internal/vigencia"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	logger     *slog.Logger
	engine     *vigencia.Engine
}

// NewRootCommand builds the expediente command tree.
func NewRootCommand() *cobra.Command {
	a := &app{engine: vigencia.NewEngine()}

	root := &cobra.Command{
		Use:           "expediente",
		Short:         "Vehicle ownership chain and compliance analysis",
		Long:          `Analyze Mexican vehicle expedientes: build the ownership chain, detect gaps and anomalies, and check circulation certificate validity per state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $EXPEDIENTE_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newAnalyzeCommand(a))
	root.AddCommand(newVigenciaCommand(a))
	root.AddCommand(newStatesCommand(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	// stdout carries results only.
	a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return nil
}

func (a *app) service() (*analysis.Service, error) {
	policy, err := a.cfg.ReturnPolicy()
	if err != nil {
		return nil, err
	}
	return analysis.NewService(
		analysis.NewAnalyzer(analysis.WithEngine(a.engine), analysis.WithReturnPolicy(policy)),
		analysis.WithLogger(a.logger),
	), nil
}
