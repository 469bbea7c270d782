// Package main provides the vibe-mv command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Configuration keys.
const (
	keyGenomesDir   = "genomes.dir"
	keyMinCoverage  = "stats.min_coverage"
	keyMinFrequency = "stats.min_frequency"
	keyWorkers      = "batch.workers"
	keyDBPath       = "db.path"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// globals holds state shared by every subcommand.
type globals struct {
	cfgFile string
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "vibe-mv",
		Short: "Within-host minor variant statistics and codon annotation",
		Long: `vibe-mv quantifies within-host minor variants from per-position base counts
and classifies substitutions against SARS-CoV-2, West Nile and Yellow Fever
virus reference genomes.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(g.cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(g.verbose)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&g.cfgFile, "config", "", "Config file (default: ~/.vibe-mv.yaml)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("genomes", "", "Directory holding reference FASTA files (default: ~/.vibe-mv/genomes)")
	_ = viper.BindPFlag(keyGenomesDir, cmd.PersistentFlags().Lookup("genomes"))

	cmd.AddCommand(newPileupCmd(g))
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newAnnotateCmd(g))
	cmd.AddCommand(newDownloadCmd(g))
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig reads the config file and environment. A missing config file
// is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vibe-mv")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VIBE_MV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(keyGenomesDir, defaultGenomesDir())
	viper.SetDefault(keyMinCoverage, 50)
	viper.SetDefault(keyMinFrequency, 0.3)
	viper.SetDefault(keyWorkers, 0)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// defaultGenomesDir returns ~/.vibe-mv/genomes, or "" without a home directory.
func defaultGenomesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vibe-mv", "genomes")
}

// newLogger builds a stderr logger; verbose switches to a development config
// at debug level.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
