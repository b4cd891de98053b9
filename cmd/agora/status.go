package main

import (
	"fmt"

	"github.com/kohaku-io/agora/internal/formatter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show the status of a discussion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}

		st, err := store.Status(args[0])
		if err != nil {
			return err
		}

		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		out, err := f.FormatStatus(st)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discussions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}

		statuses, err := store.ListStatuses()
		if err != nil {
			return err
		}

		activeOnly, _ := cmd.Flags().GetBool("active")
		if activeOnly {
			filtered := statuses[:0]
			for _, st := range statuses {
				if st.Active {
					filtered = append(filtered, st)
				}
			}
			statuses = filtered
		}

		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		out, err := f.FormatStatuses(statuses)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func outputFormatter(cmd *cobra.Command) (formatter.StatusFormatter, error) {
	raw, _ := cmd.Flags().GetString("output")
	format, err := formatter.ParseOutputFormat(raw)
	if err != nil {
		return nil, err
	}
	return formatter.NewFormatterFactory().Create(format)
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	statusCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	listCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	listCmd.Flags().Bool("active", false, "Only show active discussions")
}
