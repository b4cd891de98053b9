package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <id> <question>",
	Short: "Ask a follow-up question in a discussion",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, question := args[0], args[1]
		target, _ := cmd.Flags().GetString("target")

		store, err := newStore()
		if err != nil {
			return err
		}

		m, err := store.AppendFollowup(id, question, target)
		if err != nil {
			return err
		}

		fmt.Printf("Follow-up appended (seq %d, round %d)\n", m.Seq, m.Round)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("target", "t", "", "Address the question to one agent only")
}
