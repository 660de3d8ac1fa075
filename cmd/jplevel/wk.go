package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/jplevel/pkg/batch"
	"github.com/japaniel/jplevel/pkg/coverage"
	"github.com/japaniel/jplevel/pkg/db"
	"github.com/japaniel/jplevel/pkg/level"
	"github.com/japaniel/jplevel/pkg/source"
)

func newWKCmd(a *app) *cobra.Command {
	wk := &cobra.Command{
		Use:   "wk",
		Short: "WaniKani-based analysis",
	}
	wk.AddCommand(newTextCmd(a), newURLCmd(a), newBatchCmd(a))
	return wk
}

type reportOptions struct {
	unknown int
	save    bool
}

func (o *reportOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.unknown, "unknown", 0, "also list up to N words missing from the vocabulary reference")
	cmd.Flags().BoolVar(&o.save, "save", false, "store the result in the history database")
}

func newTextCmd(a *app) *cobra.Command {
	var opts reportOptions
	var example bool
	cmd := &cobra.Command{
		Use:   "text [file]",
		Short: "Analyze a text file",
		Args: func(cmd *cobra.Command, args []string) error {
			if example && len(args) > 0 {
				return errors.New("give either a file or --example, not both")
			}
			if !example && len(args) != 1 {
				return errors.New("requires a file path or --example")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var doc source.Document
			if example {
				doc = source.Example()
				fmt.Fprintln(out, "Example text:")
				fmt.Fprintln(out, doc.Text)
			} else {
				var err error
				if doc, err = source.FromFile(args[0]); err != nil {
					return err
				}
			}
			return a.report(cmd.Context(), out, doc, opts)
		},
	}
	cmd.Flags().BoolVar(&example, "example", false, "run analysis on the bundled example text")
	opts.register(cmd)
	return cmd
}

func newURLCmd(a *app) *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "url <url>",
		Short: "Fetch a web article and analyze its text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fetching %s...\n", args[0])
			client := &http.Client{Timeout: 30 * time.Second}
			doc, err := source.FromURL(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Title: %s\n", doc.Title)
			fmt.Fprintf(out, "Extracted Text Length: %d chars\n", len([]rune(doc.Text)))
			return a.report(cmd.Context(), out, doc, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func (a *app) report(ctx context.Context, out io.Writer, doc source.Document, opts reportOptions) error {
	analyzer, err := a.loadAnalyzer(ctx)
	if err != nil {
		return err
	}
	res := analyzer.Analyze(doc.Text)
	writeTable(out, res)

	if opts.unknown > 0 {
		reporter, err := coverage.NewReporter()
		if err != nil {
			return fmt.Errorf("failed to create tokenizer: %w", err)
		}
		writeUnknown(out, reporter.Report(doc.Text, analyzer.Reference().Vocab, opts.unknown))
	}

	if opts.save {
		conn, err := a.openDB()
		if err != nil {
			return err
		}
		defer conn.Close()
		sourceID, err := db.CreateOrGetSource(conn, doc.Kind, doc.Title, doc.Location)
		if err != nil {
			return fmt.Errorf("failed to persist source: %w", err)
		}
		id, err := db.SaveAnalysis(conn, sourceID, res, len([]rune(doc.Text)))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Analysis saved with ID: %d\n", id)
	}
	return nil
}

func newBatchCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Analyze every .txt and .html file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			paths, err := batch.Collect(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintf(out, "No .txt or .html files in %s\n", args[0])
				return nil
			}
			analyzer, err := a.loadAnalyzer(cmd.Context())
			if err != nil {
				return err
			}

			r := batch.NewRunner(analyzer, nil)
			r.Workers = a.v.GetInt("workers")
			r.Logger = a.logger
			if save {
				conn, err := a.openDB()
				if err != nil {
					return err
				}
				defer conn.Close()
				r.DB = conn
			}

			items, err := r.Run(cmd.Context(), paths)
			writeBatch(out, items)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Processing complete. Analyzed %d files.\n", countOK(items))
			return nil
		},
	}
	cmd.Flags().Int("workers", 4, "number of files analyzed in parallel")
	cmd.Flags().BoolVar(&save, "save", false, "store every result in the history database")
	a.v.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func countOK(items []batch.Item) int {
	n := 0
	for _, it := range items {
		if it.Err == nil && it.Path != "" {
			n++
		}
	}
	return n
}

// profileValue renders one cell of the result table.
func profileValue(p level.Profile, label string) string {
	if v, ok := p.Get(label); ok {
		return fmt.Sprint(v)
	}
	return "-"
}
