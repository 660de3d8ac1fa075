package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/japaniel/jplevel/pkg/batch"
	"github.com/japaniel/jplevel/pkg/coverage"
	"github.com/japaniel/jplevel/pkg/db"
	"github.com/japaniel/jplevel/pkg/level"
)

func labels() []string {
	out := make([]string, 0, len(level.Percentiles)+1)
	for _, p := range level.Percentiles {
		out = append(out, level.Label(p))
	}
	return append(out, level.MaxLabel)
}

func writeTable(w io.Writer, r level.Result) {
	fmt.Fprintln(w, "\n------- WaniKani Analysis ------")
	if r.Kanji.Empty() && r.Vocab.Empty() {
		fmt.Fprintln(w, "No kanji or vocabulary found.")
		fmt.Fprintln(w, "--------------------------------")
		return
	}
	fmt.Fprintf(w, "%-10s | %-8s | %-8s\n", "Percentage", "LV Kanji", "LV Vocab")
	fmt.Fprintln(w, strings.Repeat("-", 32))
	for _, label := range labels() {
		fmt.Fprintf(w, "%-10s | %-8s | %-8s\n", label, profileValue(r.Kanji, label), profileValue(r.Vocab, label))
	}
	fmt.Fprintln(w, "--------------------------------")
	fmt.Fprintf(w, "Matched %d kanji and %d vocabulary occurrences.\n\n", r.KanjiCount, r.VocabCount)
}

func writeUnknown(w io.Writer, entries []coverage.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Every word found is in the vocabulary reference.")
		return
	}
	fmt.Fprintln(w, "Words not in the vocabulary reference:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORD\tREADING\tCOUNT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Lemma, e.Reading, e.Count)
	}
	tw.Flush()
}

func writeBatch(w io.Writer, items []batch.Item) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "FILE"
	for _, l := range labels() {
		header += "\tK " + l
	}
	for _, l := range labels() {
		header += "\tV " + l
	}
	fmt.Fprintln(tw, header)
	for _, it := range items {
		if it.Path == "" {
			continue
		}
		row := filepath.Base(it.Path)
		if it.Err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\n", row, it.Err)
			continue
		}
		for _, l := range labels() {
			row += "\t" + profileValue(it.Result.Kanji, l)
		}
		for _, l := range labels() {
			row += "\t" + profileValue(it.Result.Vocab, l)
		}
		fmt.Fprintln(tw, row)
	}
	tw.Flush()
}

func writeHistory(w io.Writer, analyses []db.Analysis) {
	if len(analyses) == 0 {
		fmt.Fprintln(w, "No analyses stored yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tSOURCE\tKANJI 90%\tVOCAB 90%\tKANJI 100%\tVOCAB 100%")
	for _, a := range analyses {
		name := "-"
		if a.Source != nil {
			name = a.Source.Title
			if name == "" {
				name = a.Source.Location
			}
			if name == "" {
				name = a.Source.SourceType
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.CreatedAt.Local().Format("2006-01-02 15:04"), name,
			profileValue(a.Kanji, "90%"), profileValue(a.Vocab, "90%"),
			profileValue(a.Kanji, level.MaxLabel), profileValue(a.Vocab, level.MaxLabel))
	}
	tw.Flush()
}
