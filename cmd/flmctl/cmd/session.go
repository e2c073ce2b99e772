package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GeauxEric/flame/pkg/flameclient"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var (
	createApplication string
	createDesired     int32
)

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		sess, err := c.CreateSession(cmd.Context(), createApplication, nil, createDesired)
		if err != nil {
			return err
		}
		// mirrors the original flmctl's create.rs success message
		cmd.Printf("Session %s was created.\n", sess.ID)
		return nil
	},
}

var sessionGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		sess, err := c.GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Println(describeSession(sess))
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		sessions, err := c.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		for _, sess := range sessions {
			cmd.Println(describeSession(&sess))
		}
		return nil
	},
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.CloseSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Session %s was closed.\n", args[0])
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a closed or terminated session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Session %s was deleted.\n", args[0])
		return nil
	},
}

func init() {
	sessionCreateCmd.Flags().StringVar(&createApplication, "application", "", "application name (required)")
	sessionCreateCmd.Flags().Int32Var(&createDesired, "desired", 1, "desired executor slot count")
	_ = sessionCreateCmd.MarkFlagRequired("application")

	sessionCmd.AddCommand(sessionCreateCmd, sessionGetCmd, sessionListCmd, sessionCloseCmd, sessionDeleteCmd)
}

func describeSession(s *flameclient.Session) string {
	return fmt.Sprintf("%s\tapplication=%s\tstate=%s\tdesired=%d\tallocated=%d",
		s.ID, s.Application, s.State, s.Desired, s.Allocated)
}
