package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inercia/qbconnect/internal/secrets"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Manage the connection ticket in the system keychain",
	Long: `Manage the long-lived connection ticket in the system keychain
(macOS only). Set "connection_ticket.keychain: true" in the config file to
use it. On other platforms, point "connection_ticket.file" at a ticket
file instead.`,
}

var ticketSetCmd = &cobra.Command{
	Use:   "set <ticket>",
	Short: "Store the connection ticket in the keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.SetConnectionTicket(args[0]); err != nil {
			if errors.Is(err, secrets.ErrNotSupported) {
				return fmt.Errorf("no keychain on this platform; use connection_ticket.file in the config instead")
			}
			return fmt.Errorf("store connection ticket: %w", err)
		}
		fmt.Println("connection ticket stored")
		return nil
	},
}

var ticketShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether a connection ticket is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ticket, err := secrets.ConnectionTicket()
		if errors.Is(err, secrets.ErrNotFound) {
			fmt.Println("no connection ticket stored")
			return nil
		}
		if err != nil {
			if errors.Is(err, secrets.ErrNotSupported) {
				return fmt.Errorf("no keychain on this platform")
			}
			return fmt.Errorf("read connection ticket: %w", err)
		}
		fmt.Printf("connection ticket: %s\n", maskTicket(ticket))
		return nil
	},
}

var ticketClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the connection ticket from the keychain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := secrets.DeleteConnectionTicket()
		if err != nil && !errors.Is(err, secrets.ErrNotFound) {
			if errors.Is(err, secrets.ErrNotSupported) {
				return fmt.Errorf("no keychain on this platform")
			}
			return fmt.Errorf("remove connection ticket: %w", err)
		}
		fmt.Println("connection ticket removed")
		return nil
	},
}

func init() {
	ticketCmd.AddCommand(ticketSetCmd)
	ticketCmd.AddCommand(ticketShowCmd)
	ticketCmd.AddCommand(ticketClearCmd)
	rootCmd.AddCommand(ticketCmd)
}
