package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GeauxEric/flame/pkg/flameclient"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks within a session",
}

var taskCreateInput string

var taskCreateCmd = &cobra.Command{
	Use:   "create <session-id>",
	Short: "Submit a task to a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		task, err := c.CreateTask(cmd.Context(), args[0], []byte(taskCreateInput))
		if err != nil {
			return err
		}
		cmd.Println(describeTask(task))
		return nil
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get <session-id> <task-id>",
	Short: "Get a task's current state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		task, err := c.GetTask(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		cmd.Println(describeTask(task))
		return nil
	},
}

var taskWatchCmd = &cobra.Command{
	Use:   "watch <session-id> <task-id>",
	Short: "Block until a task completes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		task, err := c.WatchTask(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		cmd.Println(describeTask(task))
		return nil
	},
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreateInput, "input", "", "task input payload")

	taskCmd.AddCommand(taskCreateCmd, taskGetCmd, taskWatchCmd)
}

func describeTask(t *flameclient.Task) string {
	return fmt.Sprintf("%s\tsession=%s\tstate=%s", t.ID, t.SessionID, t.State)
}
