package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkeye/Livecast/internal/sessioncode"
)

var finishCmd = &cobra.Command{
	Use:   "finish <code|link>",
	Short: "Mark a session finished in the store",
	Long: `Mark a session finished. Both sides notice on their next poll and hang up.

Examples:
  livecast finish brave-otter-ramen`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFinish(cmd.Context(), args[0])
	},
}

func runFinish(ctx context.Context, input string) error {
	sid, err := sessioncode.Parse(input)
	if err != nil {
		return err
	}
	st, err := newStack(cfg)
	if err != nil {
		return err
	}
	if err := st.client.Finish(ctx, sid); err != nil {
		return fmt.Errorf("finish session %s: %w", sid, err)
	}
	fmt.Printf("Session %s finished\n", sessioncode.Encode(sid))
	return nil
}
