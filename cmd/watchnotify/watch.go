package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ngrok/watchnotify"
	"github.com/ngrok/watchnotify/watch"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagDir     = "dir"
	FlagGid     = "gid"
	FlagTimeout = "timeout"
	FlagAnswer  = "answer"
)

// GetWatchCmd returns the command running a watcher until interrupted.
func GetWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Register a watcher on an object directory and log every notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cmd.Flags().GetString(FlagDir)
			if err != nil {
				return errors.Wrapf(err, "%s flag", FlagDir)
			}
			answer, err := cmd.Flags().GetInt32(FlagAnswer)
			if err != nil {
				return errors.Wrapf(err, "%s flag", FlagAnswer)
			}
			opts, err := watchOptions(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			l := logger.New("dir", dir)
			handler := watch.HandlerFunc(func(_ context.Context, msg watchnotify.NotifyMessage) watchnotify.ResponseMessage {
				l.Info("notification", watchnotify.LogCtx(msg))
				return watchnotify.ResponseMessage{Result: answer}
			})
			w, err := watch.NewWatcher(ctx, dir, handler, opts...)
			if err != nil {
				return err
			}
			l.Info("watching", "client", w.ID())

			// Wait for signal
			<-ctx.Done()
			return w.Close()
		},
	}
	addWatchFlags(cmd)
	cmd.Flags().Int32(FlagAnswer, 0, "(optional) result to answer every notification with")
	return cmd
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagDir, "", "object directory shared by watchers")
	cmd.MarkFlagRequired(FlagDir)
	cmd.Flags().Uint64(FlagGid, 0, "(optional) watcher gid, defaults to the process id")
	cmd.Flags().Duration(FlagTimeout, watch.DefaultTimeout, "(optional) per exchange timeout")
}

// watchOptions maps the flags added by addWatchFlags onto watch options.
func watchOptions(cmd *cobra.Command) ([]watch.Option, error) {
	gid, err := cmd.Flags().GetUint64(FlagGid)
	if err != nil {
		return nil, errors.Wrapf(err, "%s flag", FlagGid)
	}
	timeout, err := cmd.Flags().GetDuration(FlagTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "%s flag", FlagTimeout)
	}
	opts := []watch.Option{watch.WithLogger(logger), watch.WithTimeout(timeout)}
	if gid != 0 {
		opts = append(opts, watch.WithGid(gid))
	}
	return opts, nil
}

func init() {
	rootCmd.AddCommand(GetWatchCmd())
}
