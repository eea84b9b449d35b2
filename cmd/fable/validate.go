package main

import (
	"context"
	"fmt"

	"github.com/aretw0/fable/internal/cli"
	"github.com/aretw0/fable/internal/scripting"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the story for consistency",
	Long: `Decodes every state, compiles every script and crawls the story from the
initial state, reporting broken transitions and unreachable states.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runValidate(ctx)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(ctx context.Context) error {
	source, closer, err := cli.OpenSource(ctx, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	logger := cli.NewLogger(cfg.Level(), false)
	report, err := cli.Validate(ctx, assets.NewCatalog(source), scripting.NewHost(scripting.WithLogger(logger)), cfg.InitialState)
	if err != nil {
		return err
	}

	for _, key := range report.Unreachable {
		fmt.Printf("warning: state '%s' is unreachable from '%s'\n", key, cfg.InitialState)
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Printf("Story is valid: %d states, %d scripts ✅\n", report.States, report.Scripts)
	return nil
}
