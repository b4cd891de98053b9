package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kohaku-io/agora/internal/config"
	"github.com/kohaku-io/agora/internal/message"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Print a discussion's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}

		msgs, err := store.ReadAll(args[0])
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return fmt.Errorf("discussion %s does not exist", args[0])
		}

		raw, _ := cmd.Flags().GetBool("raw")
		for _, m := range msgs {
			if raw {
				line, err := message.Encode(m)
				if err != nil {
					continue
				}
				fmt.Println(string(line))
				continue
			}
			printMessage(m)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Follow a discussion live",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		store, err := newStore()
		if err != nil {
			return err
		}

		msgs, err := store.ReadAll(id)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return fmt.Errorf("discussion %s does not exist", id)
		}
		for _, m := range msgs {
			printMessage(m)
		}

		pollInterval, err := config.DurationOrDefault(cfg.Runtime.PollInterval, config.DefaultRuntimePollInterval)
		if err != nil {
			return err
		}

		ended := make(chan struct{})
		w := store.Watch(id, pollInterval, func(tail []message.Message) {
			for _, m := range tail {
				printMessage(m)
				if m.Type == message.TypeEnd {
					close(ended)
					return
				}
			}
		})
		defer w.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-ended:
		}
		return nil
	},
}

func printMessage(m message.Message) {
	switch m.Type {
	case message.TypeStart:
		fmt.Printf("[%s] discussion started: %s (participants: %s)\n", m.TS, m.Topic, strings.Join(m.Participants, ", "))
	case message.TypeResponse:
		fmt.Printf("[%s] %s (round %d, %s, confidence %.2f):\n%s\n\n", m.TS, m.From, m.Round, m.Opinion, m.Confidence, m.Content)
	case message.TypeFollowup:
		target := ""
		if m.Target != "" {
			target = " -> " + m.Target
		}
		fmt.Printf("[%s] %s asks%s (round %d): %s\n", m.TS, m.From, target, m.Round, m.Content)
	case message.TypeEnd:
		fmt.Printf("[%s] discussion ended: %s (consensus: %t)\n", m.TS, m.Decision, m.Consensus)
	case message.TypeError:
		fmt.Printf("[%s] %s error (round %d): %s\n", m.TS, m.From, m.Round, m.Error)
	case message.TypeStatus:
		fmt.Printf("[%s] %s is %s\n", m.TS, m.From, m.Status)
	default:
		fmt.Printf("[%s] %s %s\n", m.TS, m.From, m.Type)
	}
}

func init() {
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(watchCmd)
	logCmd.Flags().Bool("raw", false, "Print raw JSONL records")
}
