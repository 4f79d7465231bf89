// fraudeval runs hyperparameter grid evaluations of unsupervised fraud
// detectors against a labeled dataset and writes one JSONL record per
// configuration.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anomgrid/fraudeval/pkg/dataset"
	"github.com/anomgrid/fraudeval/pkg/estimators/dbscan"
	"github.com/anomgrid/fraudeval/pkg/estimators/iforest"
	"github.com/anomgrid/fraudeval/pkg/estimators/oneclass"
	"github.com/anomgrid/fraudeval/pkg/eval"
)

const envPrefix = "FRAUDEVAL"

var (
	buildVersion = "unknown"

	cfgFile     string
	logLevel    string
	dataPath    string
	labelColumn string
	noHeader    bool
	resultsPath string
	seed        int64
	holdout     float64
	family      string

	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "fraudeval",
	Short:   "Grid-evaluate unsupervised fraud detectors against labeled data",
	Version: buildVersion,
}

var boundaryCmd = &cobra.Command{
	Use:   "boundary",
	Short: "Evaluate a one-class boundary model family over a hyperparameter grid",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runBoundary()
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Evaluate a density clustering family over a hyperparameter grid",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runCluster()
	},
}

func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".fraudeval")
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfgErr := v.ReadInConfig()

	initLogger()

	if cfgErr != nil && cfgFile != "" {
		log.Errorf("read config error: %v", cfgErr)
	}

	// Config file values fill in anything the flags left at defaults.
	if v.IsSet("dataset") && dataPath == "" {
		dataPath = v.GetString("dataset")
	}
	if v.IsSet("labelColumn") && labelColumn == "" {
		labelColumn = v.GetString("labelColumn")
	}
	if v.IsSet("seed") && !rootCmd.PersistentFlags().Changed("seed") {
		seed = v.GetInt64("seed")
	}
	if v.IsSet("holdout") && !rootCmd.PersistentFlags().Changed("holdout") {
		holdout = v.GetFloat64("holdout")
	}
}

func initLogger() {
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		ll = log.InfoLevel
	}
	log.SetLevel(ll)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, PadLevelText: true, DisableQuote: true})
}

// loadGrid reads the grid axes from the config file, preserving the order
// they were written in. Enumeration order is part of the harness contract.
func loadGrid() (eval.Grid, error) {
	raw, ok := v.Get("grid").([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("config has no grid section")
	}
	var grid eval.Grid
	for i, entry := range raw {
		axis, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("grid entry %d is not a mapping", i)
		}
		name, _ := axis["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("grid entry %d has no name", i)
		}
		values, ok := axis["values"].([]any)
		if !ok || len(values) == 0 {
			return nil, fmt.Errorf("grid axis %q has no values", name)
		}
		grid = append(grid, eval.Param{Name: name, Values: values})
	}
	return grid, nil
}

func loadData() (*dataset.Dataset, error) {
	if dataPath == "" {
		return nil, fmt.Errorf("no dataset given (flag --dataset or config key dataset)")
	}
	opts := []dataset.Option{dataset.WithHeader(!noHeader)}
	if labelColumn != "" {
		opts = append(opts, dataset.WithLabelName(labelColumn))
	}
	ds, err := dataset.NewLoader(opts...).Load(dataPath)
	if err != nil {
		return nil, err
	}
	log.Infof("loaded %s: %d rows, %d features", dataPath, ds.Len(), len(ds.Features[0]))
	return ds, nil
}

func openSink() (eval.ResultLog, func(), error) {
	if resultsPath == "" || resultsPath == "-" {
		return eval.NewJSONLSink(os.Stdout), func() {}, nil
	}
	f, err := os.Create(resultsPath)
	if err != nil {
		return nil, nil, err
	}
	return eval.NewJSONLSink(io.Writer(f)), func() { f.Close() }, nil
}

func runBoundary() error {
	var (
		keys    eval.KeySet
		provide eval.BoundaryProvider
	)
	switch family {
	case "oneclass":
		keys, provide = oneclass.Keys(), oneclass.FromConfig
	case "iforest":
		keys, provide = iforest.Keys(), iforest.FromConfig
	default:
		return fmt.Errorf("unknown boundary family %q (want oneclass or iforest)", family)
	}

	grid, err := loadGrid()
	if err != nil {
		return err
	}
	if err := keys.ValidateGrid(grid); err != nil {
		return err
	}

	ds, err := loadData()
	if err != nil {
		return err
	}

	part := eval.NewPartitioner(eval.WithHoldout(holdout), eval.WithSeed(seed))
	xTrain, xTest, _, yTest, err := part.Split(ds.Features, ds.Labels, eval.LabelNormal)
	if err != nil {
		return err
	}
	log.Infof("partition: %d train rows (normal only), %d test rows", len(xTrain), len(xTest))

	sink, closeSink, err := openSink()
	if err != nil {
		return err
	}
	defer closeSink()

	adapter := eval.NewAdapter()
	orch := eval.NewOrchestrator(sink)
	records, err := orch.Run(grid, func(cfg eval.Configuration) (eval.MetricSet, time.Duration, error) {
		predicted, elapsed, err := adapter.FitScoreBoundary(xTrain, xTest, cfg, provide)
		if err != nil {
			return nil, elapsed, err
		}
		m, err := eval.AnalyzeBoundary(yTest, predicted)
		return m, elapsed, err
	})
	if err != nil {
		return err
	}

	var best eval.BestF1
	for _, rec := range records {
		best.Consider(rec)
	}
	if rec, ok := best.Best(); ok {
		log.Infof("best f1 %s with %v (trained in %s)", rec.Boundary.F1, map[string]any(rec.Config), rec.TrainingTime)
	} else {
		log.Warn("no configuration produced a defined f1")
	}
	return nil
}

func runCluster() error {
	grid, err := loadGrid()
	if err != nil {
		return err
	}
	if err := dbscan.Keys().ValidateGrid(grid); err != nil {
		return err
	}

	ds, err := loadData()
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink()
	if err != nil {
		return err
	}
	defer closeSink()

	adapter := eval.NewAdapter()
	orch := eval.NewOrchestrator(sink)
	_, err = orch.Run(grid, func(cfg eval.Configuration) (eval.MetricSet, time.Duration, error) {
		assignments, elapsed, err := adapter.FitScoreCluster(ds.Features, cfg, dbscan.FromConfig)
		if err != nil {
			return nil, elapsed, err
		}
		m, err := eval.AnalyzeCluster(ds.Labels, assignments)
		return m, elapsed, err
	})
	return err
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .fraudeval.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringVar(&dataPath, "dataset", "", "labeled CSV dataset")
	rootCmd.PersistentFlags().StringVar(&labelColumn, "label-column", "", "label column name (default: last column)")
	rootCmd.PersistentFlags().BoolVar(&noHeader, "no-header", false, "dataset has no header row")
	rootCmd.PersistentFlags().StringVar(&resultsPath, "results", "-", "JSONL results file, - for stdout")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "partition holdout seed")
	rootCmd.PersistentFlags().Float64Var(&holdout, "holdout", 0.2, "fraction of normal rows held out for testing")

	boundaryCmd.Flags().StringVar(&family, "family", "oneclass", "boundary model family: oneclass or iforest")

	rootCmd.AddCommand(boundaryCmd)
	rootCmd.AddCommand(clusterCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
