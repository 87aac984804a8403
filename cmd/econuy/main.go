// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

// Command econuy lists, fetches and caches economic statistics datasets.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"econuy.io/econuy/loader"
	"econuy.io/econuy/retrieval"
)

type config struct {
	DataDir   string
	BaseURL   string
	Workers   int
	Staleness time.Duration
	Timeout   time.Duration
	Verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "econuy:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	conf := &config{}
	root := &cobra.Command{
		Use:           "econuy",
		Short:         "Uruguayan economic statistics, retrieved, cached and transformed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			viper.SetEnvPrefix("econuy")
			viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			viper.AutomaticEnv()
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			conf.DataDir = viper.GetString("data-dir")
			conf.BaseURL = viper.GetString("base-url")
			conf.Workers = viper.GetInt("workers")
			conf.Staleness = viper.GetDuration("staleness")
			conf.Timeout = viper.GetDuration("timeout")
			conf.Verbose = viper.GetBool("verbose")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("data-dir", "", "directory for cached datasets, defaults to the user cache dir")
	flags.String("base-url", retrieval.DefaultBaseURL, "base URL of the reference data endpoints")
	flags.Int("workers", 4, "maximum concurrent dataset retrievals")
	flags.Duration("staleness", 24*time.Hour, "cache age after which an update check runs")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(newListCmd(conf), newGetCmd(conf), newFetchCmd(conf))
	return root
}

func openLogger(conf *config) (*zap.Logger, error) {
	if conf.Verbose {
		return zap.NewDevelopment()
	}
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	logConf := zap.NewProductionConfig()
	logConf.Level = level
	return logConf.Build()
}

// openLoader wires the retrieval client, registry, cache and loader from
// the resolved configuration.
func openLoader(conf *config) (*loader.Loader, *zap.Logger, error) {
	log, err := openLogger(conf)
	if err != nil {
		return nil, nil, err
	}
	client := retrieval.NewClient(log.Named("retrieval"), retrieval.Config{
		Timeout: conf.Timeout,
	})
	registry, err := loader.NewRegistry(retrieval.Builtin(client, conf.BaseURL)...)
	if err != nil {
		return nil, nil, err
	}
	cache, err := loader.NewCache(log.Named("cache"), conf.DataDir)
	if err != nil {
		return nil, nil, err
	}
	ld := loader.New(log.Named("loader"), registry, cache,
		loader.DefaultRetryPolicy(retrieval.IsTransient), loader.Config{
			DataDir:   conf.DataDir,
			Workers:   conf.Workers,
			Staleness: conf.Staleness,
		})
	return ld, log, nil
}
