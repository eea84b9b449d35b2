package main

import (
	"fmt"

	"github.com/aretw0/fable/internal/cli"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the story as a Mermaid flowchart",
	Long: `Prints every state and transition of the story in Mermaid syntax.
With --slot, the current state of that save is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		slot, _ := cmd.Flags().GetString("slot")

		source, closer, err := cli.OpenSource(ctx, cfg)
		if err != nil {
			return err
		}
		if closer != nil {
			defer closer.Close()
		}

		var current string
		if slot != "" {
			store, storeCloser, err := cli.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			if storeCloser != nil {
				defer storeCloser.Close()
			}
			save, err := store.Load(ctx, slot)
			if err != nil {
				return err
			}
			current = save.CurrentStateKey
		}

		out, err := cli.Graph(ctx, assets.NewCatalog(source), cfg.InitialState, cfg.FinalState, current)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("slot", "", "Highlight the current state of a save slot")
}
