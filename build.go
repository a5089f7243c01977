package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milk9111/mapengine/levels"
	"github.com/milk9111/mapengine/rmp"
)

var buildCmd = &cobra.Command{
	Use:   "build <level.yaml> <out.rmp>",
	Short: "Build a map file from a level source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := levels.ReadFile(args[0])
		if err != nil {
			return err
		}
		m, err := lvl.Build()
		if err != nil {
			return err
		}
		if err := rmp.Save(args[1], m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d layers, %d entities, %d zones\n", args[1], len(m.Layers), len(m.Entities), len(m.Zones))
		return nil
	},
}
