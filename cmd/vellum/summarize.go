package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vellumdb/vellum/analytics"
	"github.com/vellumdb/vellum/model"
)

var (
	summarizeSample int
	summarizeTop    int
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <collection>",
	Short: "Sample a collection and print per-field statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close(ctx)

		m, err := model.GetModel(ctx, st.Collection(args[0]))
		if err != nil {
			return err
		}

		summaries, err := analytics.Summarize(ctx, m.Collection(), m.Descriptor(), summarizeSample, summarizeTop)
		if err != nil {
			return err
		}

		paths := make([]string, 0, len(summaries))
		for path := range summaries {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			s := summaries[path]
			fmt.Println(color.New(color.Bold).Sprint(path))
			fmt.Printf("  present %d, missing %d, types %s\n", s.Present, s.Missing, renderTypes(s.Types))
			if s.Min != nil && s.Max != nil {
				fmt.Printf("  min %g, max %g\n", *s.Min, *s.Max)
			}
			for _, vc := range s.Top {
				fmt.Printf("  %4dx %v\n", vc.Count, vc.Value)
			}
		}
		return nil
	},
}

func renderTypes(types map[string]int) string {
	if len(types) == 0 {
		return "none"
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s(%d)", name, types[name]))
	}
	return strings.Join(parts, " ")
}

func init() {
	summarizeCmd.Flags().IntVar(&summarizeSample, "sample", analytics.DefaultSampleSize, "number of documents to sample")
	summarizeCmd.Flags().IntVar(&summarizeTop, "top", 5, "number of most frequent values to show per field")
}
