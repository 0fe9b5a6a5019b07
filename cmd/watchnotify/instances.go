package main

import (
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/ngrok/watchnotify"
	"github.com/spf13/cobra"
)

// dumpLine is one line of JSON output describing a message.
type dumpLine struct {
	Kind     string                  `json:"kind"`
	Op       string                  `json:"op,omitempty"`
	Hex      string                  `json:"hex,omitempty"`
	Consumed int                     `json:"consumed,omitempty"`
	Trailing int                     `json:"trailing,omitempty"`
	Dump     watchnotify.MapFormatter `json:"dump"`
}

func writeLine(w io.Writer, line dumpLine) error {
	return json.NewEncoder(w).Encode(line)
}

// GetInstancesCmd returns the command printing the canonical messages.
func GetInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Print the encoding and dump of every canonical message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, msg := range watchnotify.NotifyMessageTestInstances() {
				data, err := msg.MarshalBinary()
				if err != nil {
					return err
				}
				if err := writeLine(out, dumpLine{
					Kind: "notify",
					Op:   msg.Op().String(),
					Hex:  hex.EncodeToString(data),
					Dump: watchnotify.DumpMap(msg),
				}); err != nil {
					return err
				}
			}
			for _, msg := range watchnotify.ResponseMessageTestInstances() {
				data, err := msg.MarshalBinary()
				if err != nil {
					return err
				}
				if err := writeLine(out, dumpLine{
					Kind: "response",
					Hex:  hex.EncodeToString(data),
					Dump: watchnotify.DumpMap(msg),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(GetInstancesCmd())
}
