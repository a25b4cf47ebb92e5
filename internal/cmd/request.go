package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inercia/qbconnect/internal/qbxml"
)

var requestTimeout time.Duration

// requestCmd sends a qbXML request read from a file (or stdin with "-").
// The input may be a bare request element, a QBXMLMsgsRq set, or a full
// QBXML document; the sign-on block is handled by the client either way.
var requestCmd = &cobra.Command{
	Use:   "request [file]",
	Short: "Send a qbXML request to the gateway and print the response",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		root, err := qbxml.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("parse request: %w", err)
		}

		var body qbxml.Nodes
		switch root.Name {
		case "QBXML":
			body = root.Children
		case "QBXMLMsgsRq":
			body = qbxml.Nodes{root}
		default:
			body = qbxml.Nodes{qbxml.El("QBXMLMsgsRq", root)}
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		response, err := c.Do(ctx, body)
		if err != nil {
			return err
		}
		saveSession(c)

		out, err := qbxml.Marshal(response.Children, "")
		if err != nil {
			return fmt.Errorf("render response: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

func init() {
	requestCmd.Flags().DurationVar(&requestTimeout, "timeout", 60*time.Second, "Overall timeout for the exchange (including sign-on)")
	rootCmd.AddCommand(requestCmd)
}
