package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

// collectionsCmd lists collections and their sizes
var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List indexed collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{skipEmbedder: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		infos, err := a.index.ListCollections(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(infos) == 0 {
			fmt.Fprintln(out, "No collections found")
			return nil
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%s: %d points\n", info.Name, info.PointCount)
		}
		return nil
	},
}
