package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var endCmd = &cobra.Command{
	Use:   "end <id> <decision>",
	Short: "End a discussion with a decision",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, decision := args[0], args[1]
		consensus, _ := cmd.Flags().GetBool("consensus")

		store, err := newStore()
		if err != nil {
			return err
		}

		if _, err := store.AppendEnd(id, decision, consensus); err != nil {
			return err
		}

		fmt.Printf("Discussion %s ended\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(endCmd)
	endCmd.Flags().Bool("consensus", false, "Record that the agents reached consensus")
}
