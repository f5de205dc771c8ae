package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vellumdb/vellum/model"
	"github.com/vellumdb/vellum/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <collection> <file.json>",
	Short: "Validate a JSON document against a collection's schema",
	Args:  cobra.ExactArgs(2),
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

		doc, err := readJSONFile(args[1])
		if err != nil {
			return err
		}

		result := validation.Validate(doc, m.Descriptor())
		if result.OK {
			color.Green("ok: %s conforms to %q", args[1], args[0])
			return nil
		}

		color.Red("%d violation(s):", len(result.Violations))
		for _, v := range result.Violations {
			fmt.Printf("  %s\n", v)
		}
		return errors.New("document does not conform to the schema")
	},
}
