package main

import (
	"encoding/hex"
	"strings"

	"github.com/ngrok/watchnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagResponse = "response"
)

// GetDecodeCmd returns the command decoding a hex encoded message.
func GetDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a hex encoded notify message (or response) and dump it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asResponse, err := cmd.Flags().GetBool(FlagResponse)
			if err != nil {
				return errors.Wrapf(err, "%s flag", FlagResponse)
			}
			data, err := hex.DecodeString(strings.Join(strings.Fields(args[0]), ""))
			if err != nil {
				return errors.Wrap(err, "invalid hex input")
			}

			line := dumpLine{Kind: "response"}
			if asResponse {
				msg, n, err := watchnotify.DecodeResponseMessage(data)
				if err != nil {
					return errors.Wrap(err, "could not decode response")
				}
				line.Consumed, line.Dump = n, watchnotify.DumpMap(msg)
			} else {
				msg, n, err := watchnotify.DecodeNotifyMessage(data)
				if err != nil {
					return errors.Wrap(err, "could not decode notification")
				}
				line.Kind, line.Op = "notify", msg.Op().String()
				line.Consumed, line.Dump = n, watchnotify.DumpMap(msg)
			}
			line.Hex = hex.EncodeToString(data[:line.Consumed])
			line.Trailing = len(data) - line.Consumed
			return writeLine(cmd.OutOrStdout(), line)
		},
	}
	cmd.Flags().Bool(FlagResponse, false, "decode a response message instead of a notification")
	return cmd
}

func init() {
	rootCmd.AddCommand(GetDecodeCmd())
}
