package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"apledger/internal/cli"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage the notes board",
}

var noteAddCmd = &cobra.Command{
	Use:   "add TEXT...",
	Short: "Pin a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := state.payables.AddNote(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		cli.PrintSuccess(state.out, fmt.Sprintf("Added note %s", n.ID))
		return nil
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := state.payables.RemoveNote(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(state.out, "Removed note "+args[0])
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		notes, err := state.payables.Notes(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(state.out, cli.RenderNotes(notes))
		return nil
	},
}

func init() {
	noteCmd.AddCommand(noteAddCmd, noteRmCmd, noteListCmd)
}
