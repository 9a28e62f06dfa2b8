package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/cvbench/config"
	"github.com/YuminosukeSato/cvbench/experiment"
	"github.com/YuminosukeSato/cvbench/pkg/log"
)

// options holds flag values shared by every subcommand. Only flags the
// user set override the configuration file.
type options struct {
	configPath  string
	dataDir     string
	resultsDir  string
	cacheDir    string
	logLevel    string
	workers     int
	foldTimeout time.Duration
	seed        uint64
	plot        bool
	metricsFile string

	dataset string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "cvbench",
		Short:         "Cross-validated feature selection and augmentation experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "experiment YAML file")
	pf.StringVarP(&opts.dataset, "dataset", "d", "", "dataset name")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding <dataset>.csv")
	pf.StringVar(&opts.resultsDir, "results-dir", "", "directory results are written under")
	pf.StringVar(&opts.cacheDir, "cache-dir", "", "fold snapshot cache directory (disabled when empty)")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	pf.IntVar(&opts.workers, "workers", 0, "concurrent folds (0 = GOMAXPROCS)")
	pf.DurationVar(&opts.foldTimeout, "fold-timeout", 0, "per-fold time limit (0 = none)")
	pf.Uint64Var(&opts.seed, "seed", 0, "seed for resampling and shuffling")
	pf.BoolVar(&opts.plot, "plot", false, "also write a box plot of fold scores")
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(newAugCmd(opts), newSearchCmd(opts))
	return root
}

func newAugCmd(opts *options) *cobra.Command {
	var (
		fs  string
		clf string
		k   int
	)
	cmd := &cobra.Command{
		Use:   "aug",
		Short: "Evaluate feature selection + kernel PCA augmentation + oversampling with one classifier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd, config.ModeAug)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fs") {
				cfg.FeatureSelection = fs
			}
			if cmd.Flags().Changed("clf") {
				cfg.Classifier = clf
			}
			if cmd.Flags().Changed("n-features") {
				cfg.K = k
			}
			return opts.run(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&fs, "fs", "", "feature selection: "+strings.Join(experiment.FeatureSelectorNames(), ", "))
	cmd.Flags().StringVar(&clf, "clf", "", "classifier: "+strings.Join(experiment.ClassifierNames(), ", "))
	cmd.Flags().IntVarP(&k, "n-features", "k", 10, fmt.Sprintf("number of features to select, one of %v", experiment.Ks))
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		lenient bool
		primary string
	)
	cmd := &cobra.Command{
		Use:   "search [dataset]",
		Short: "Grid-search feature selectors and classifiers, keeping the best mean primary metric",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dataset = args[0]
			}
			cfg, err := opts.load(cmd, config.ModeSearch)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lenient") {
				cfg.Lenient = lenient
			}
			if cmd.Flags().Changed("primary") {
				cfg.PrimaryMetric = primary
			}
			return opts.run(cmd, cfg)
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "record failing configurations instead of aborting")
	cmd.Flags().StringVar(&primary, "primary", "", "metric the best configuration is chosen by")
	return cmd
}

// load reads the configuration file (or defaults) and applies the flags
// the user set.
func (o *options) load(cmd *cobra.Command, mode string) (config.Experiment, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Experiment{}, err
		}
		cfg = loaded
	}
	cfg.Mode = mode

	flags := cmd.Flags()
	if o.dataset != "" {
		cfg.Dataset = o.dataset
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if flags.Changed("results-dir") {
		cfg.ResultsDir = o.resultsDir
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = o.cacheDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("fold-timeout") {
		cfg.FoldTimeout = o.foldTimeout
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("plot") {
		cfg.Plot = o.plot
	}
	return cfg, nil
}

func (o *options) run(cmd *cobra.Command, cfg config.Experiment) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.SetupLogger(cfg.LogLevel)

	out, err := experiment.Run(cmd.Context(), cfg)
	if o.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(o.metricsFile, prometheus.DefaultGatherer); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return err
	}
	for _, f := range out.Files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}
