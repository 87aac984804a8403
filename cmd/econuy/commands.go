// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"econuy.io/econuy/loader"
)

func newListCmd(conf *config) *cobra.Command {
	opts := loader.ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ld, log, err := openLoader(conf)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tAREA\tDESCRIPTION")
			for _, descriptor := range ld.Registry().List(opts) {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					descriptor.Name, descriptor.Area, descriptor.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&opts.IncludeAuxiliary, "auxiliary", false, "include conversion reference series")
	cmd.Flags().BoolVar(&opts.IncludeDisabled, "disabled", false, "include disabled datasets")
	cmd.Flags().StringVar(&opts.Area, "area", "", "restrict to one thematic area")
	return cmd
}

func newGetCmd(conf *config) *cobra.Command {
	opts := loader.Options{}
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Load one dataset and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ld, log, err := openLoader(conf)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			d, err := ld.LoadWith(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			data := d.Data()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dataset:    %s\n", d.Name())
			fmt.Fprintf(out, "rows:       %d\n", data.Len())
			fmt.Fprintf(out, "frequency:  %s\n", d.InferFrequency())
			fmt.Fprintf(out, "range:      %s to %s\n",
				data.Time(0).Format("2006-01-02"),
				data.Time(data.Len()-1).Format("2006-01-02"))
			fmt.Fprintf(out, "indicators:\n")
			for _, id := range d.Metadata().Indicators() {
				entry, _ := d.Metadata().Get(id)
				fmt.Fprintf(out, "  %s (%s, %s)\n", id, entry.Currency, entry.Unit)
			}
			return nil
		},
	}
	addLoadFlags(cmd.Flags(), &opts)
	return cmd
}

func newFetchCmd(conf *config) *cobra.Command {
	opts := loader.Options{}
	all := false
	cmd := &cobra.Command{
		Use:   "fetch [names...]",
		Short: "Fetch datasets into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ld, log, err := openLoader(conf)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			names := args
			if all {
				for _, descriptor := range ld.Registry().List(loader.ListOptions{IncludeAuxiliary: true}) {
					names = append(names, descriptor.Name)
				}
			}
			if len(names) == 0 {
				return fmt.Errorf("no datasets requested; pass names or --all")
			}

			bar := pb.StartNew(len(names))
			results, err := ld.LoadAll(cmd.Context(), names, opts,
				func(name string, err error) {
					bar.Increment()
					if err != nil {
						fmt.Fprintf(os.Stderr, "fetch %s: %v\n", name, err)
					}
				})
			bar.Finish()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d of %d datasets\n", len(results), len(names))
			if len(results) < len(names) {
				return fmt.Errorf("%d datasets failed", len(names)-len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "fetch every registered dataset")
	addLoadFlags(cmd.Flags(), &opts)
	return cmd
}

func addLoadFlags(flags *pflag.FlagSet, opts *loader.Options) {
	flags.BoolVar(&opts.SkipCache, "skip-cache", false, "bypass the cache entirely")
	flags.BoolVar(&opts.ForceOverwrite, "force", false, "replace the cached revision without validation")
	flags.BoolVar(&opts.SkipUpdate, "skip-update", false, "serve the cached revision regardless of age")
}
