package main

import (
	"fmt"
	"strings"

	"github.com/kohaku-io/agora/internal/agent"
	"github.com/kohaku-io/agora/internal/message"
	"github.com/kohaku-io/agora/internal/pathutil"

	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <topic>",
	Short: "Start a new discussion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]
		agentsFlag, _ := cmd.Flags().GetString("agents")
		workDir, _ := cmd.Flags().GetString("workdir")

		var participants []string
		for _, name := range strings.Split(agentsFlag, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			participants = append(participants, name)
		}
		if len(participants) < 2 {
			return fmt.Errorf("at least two agents required (e.g. --agents %s)", strings.Join(agent.Names(), ","))
		}

		var context map[string]string
		if workDir != "" {
			expanded, err := pathutil.Expand(workDir)
			if err != nil {
				return fmt.Errorf("resolve workdir: %w", err)
			}
			context = map[string]string{message.ContextWorkingDir: expanded}
		}

		store, err := newStore()
		if err != nil {
			return err
		}

		id, _, err := store.Create(topic, participants, context)
		if err != nil {
			return err
		}

		fmt.Println(id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().String("agents", strings.Join(agent.Names(), ","), "Comma-separated participant agents")
	newCmd.Flags().String("workdir", "", "Working directory agents run their CLIs in")
}
