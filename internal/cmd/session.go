package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inercia/qbconnect/internal/appdir"
	"github.com/inercia/qbconnect/internal/client"
	"github.com/inercia/qbconnect/internal/fileutil"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage the persisted gateway session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the persisted session and whether it is still valid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := appdir.SessionFilePath()
		if err != nil {
			return err
		}
		var session client.Session
		err = fileutil.ReadJSON(path, &session)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("no session")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read session file: %w", err)
		}

		fmt.Printf("ticket:           %s\n", maskTicket(session.Ticket))
		fmt.Printf("issue expiration: %s\n", session.IssueExpiration.Format(time.RFC3339))
		fmt.Printf("use expiration:   %s\n", session.UseExpiration.Format(time.RFC3339))
		fmt.Printf("valid:            %t\n", session.ValidAt(time.Now()))
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the persisted session (the next request signs on again)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := appdir.SessionFilePath()
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove session file: %w", err)
		}
		fmt.Println("session cleared")
		return nil
	},
}

var sessionAcquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Sign on with the connection ticket and persist the new session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		if err := c.AcquireSession(ctx); err != nil {
			return err
		}
		saveSession(c)

		session, _ := c.Session()
		fmt.Printf("session acquired, valid until %s (inactivity) / %s (absolute)\n",
			session.UseExpiration.Format(time.RFC3339),
			session.IssueExpiration.Format(time.RFC3339))
		return nil
	},
}

// maskTicket keeps enough of the ticket to recognize it in logs without
// leaking the credential.
func maskTicket(ticket string) string {
	if len(ticket) <= 8 {
		return "********"
	}
	return ticket[:4] + "..." + ticket[len(ticket)-4:]
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	sessionCmd.AddCommand(sessionAcquireCmd)
	rootCmd.AddCommand(sessionCmd)
}
