package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vellumdb/vellum/analytics"
	"github.com/vellumdb/vellum/model"
)

var diffStrict bool

var diffCmd = &cobra.Command{
	Use:   "diff <collection> <a.json> <b.json>",
	Short: "Show field-level differences between two JSON documents",
	Long: `Diff walks two documents along the union of their field paths and
prints every path whose values differ. Without --strict, values are
compared after coercion to the declared field type, so 30 and "30"
count as equal on a numeric field.`,
	Args: cobra.ExactArgs(3),
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

		a, err := readJSONFile(args[1])
		if err != nil {
			return err
		}
		b, err := readJSONFile(args[2])
		if err != nil {
			return err
		}

		changes := analytics.Diff(a, b, m.Descriptor(), diffStrict)
		if len(changes) == 0 {
			color.Green("documents are identical")
			return nil
		}

		paths := make([]string, 0, len(changes))
		for path := range changes {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			c := changes[path]
			fmt.Println(color.New(color.Bold).Sprint(path))
			color.Red("  - %s", renderValue(c.Old))
			color.Green("  + %s", renderValue(c.New))
			if c.TypeChanged {
				color.Yellow("  ! type changed")
			}
		}
		return nil
	},
}

func renderValue(v interface{}) string {
	if analytics.IsAbsent(v) {
		return "<absent>"
	}
	return fmt.Sprintf("%v", v)
}

func init() {
	diffCmd.Flags().BoolVar(&diffStrict, "strict", false, "require stored types to match, not just values")
}
