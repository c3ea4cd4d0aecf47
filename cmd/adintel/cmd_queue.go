package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var queueUser string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and drain the per-user hand-off queue",
}

var queuePopCmd = &cobra.Command{
	Use:   "pop",
	Short: "Pop the next queued ad for a user and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if queueUser == "" {
			return fmt.Errorf("--user is required")
		}
		q, err := openQueue()
		if err != nil {
			return err
		}
		entry, err := q.Pop(queueUser)
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Println("Queue is empty.")
			return nil
		}
		out, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var queueSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the number of queued ads for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if queueUser == "" {
			return fmt.Errorf("--user is required")
		}
		q, err := openQueue()
		if err != nil {
			return err
		}
		fmt.Println(q.Size(queueUser))
		return nil
	},
}

var queueWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the queue directory and report changes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s (ctrl-c to stop)\n", q.Dir())
		err = q.Watch(ctx, func(path string) {
			fmt.Printf("queue updated: %s\n", path)
			logger.Info("queue file changed", zap.String("path", path))
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	queueCmd.PersistentFlags().StringVarP(&queueUser, "user", "u", "", "user ID")
	queueCmd.AddCommand(queuePopCmd)
	queueCmd.AddCommand(queueSizeCmd)
	queueCmd.AddCommand(queueWatchCmd)
}
