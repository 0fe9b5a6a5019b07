package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ngrok/watchnotify"
	"github.com/ngrok/watchnotify/watch"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagOp          = "op"
	FlagClientGid   = "client-gid"
	FlagHandle      = "handle"
	FlagRequestID   = "request-id"
	FlagOffset      = "offset"
	FlagTotal       = "total"
	FlagResult      = "result"
	FlagSize        = "size"
	FlagSnapName    = "snap-name"
	FlagSnapID      = "snap-id"
	FlagWait        = "wait"
	FlagWaitTimeout = "wait-timeout"
)

// payloadArgs holds the field flags a payload is built from. Each payload
// only reads the fields it carries.
type payloadArgs struct {
	clientID  watchnotify.ClientID
	requestID uint64
	offset    uint64
	total     uint64
	result    int32
	size      uint64
	snapName  string
	snapID    uint64
}

func (a payloadArgs) asyncRequestID() watchnotify.AsyncRequestID {
	return watchnotify.NewAsyncRequestID(a.clientID, a.requestID)
}

// buildPayload builds the payload of op from args.
func buildPayload(op watchnotify.NotifyOp, a payloadArgs) (watchnotify.Payload, error) {
	switch op {
	case watchnotify.NotifyOpAcquiredLock:
		return watchnotify.AcquiredLockPayload{ClientID: a.clientID}, nil
	case watchnotify.NotifyOpReleasedLock:
		return watchnotify.ReleasedLockPayload{ClientID: a.clientID}, nil
	case watchnotify.NotifyOpRequestLock:
		return watchnotify.RequestLockPayload{ClientID: a.clientID}, nil
	case watchnotify.NotifyOpHeaderUpdate:
		return watchnotify.HeaderUpdatePayload{}, nil
	case watchnotify.NotifyOpAsyncProgress:
		return watchnotify.AsyncProgressPayload{AsyncRequestID: a.asyncRequestID(), Offset: a.offset, Total: a.total}, nil
	case watchnotify.NotifyOpAsyncComplete:
		return watchnotify.AsyncCompletePayload{AsyncRequestID: a.asyncRequestID(), Result: a.result}, nil
	case watchnotify.NotifyOpFlatten:
		return watchnotify.FlattenPayload{AsyncRequestID: a.asyncRequestID()}, nil
	case watchnotify.NotifyOpResize:
		return watchnotify.ResizePayload{Size: a.size, AsyncRequestID: a.asyncRequestID()}, nil
	case watchnotify.NotifyOpSnapCreate:
		return watchnotify.SnapCreatePayload{SnapName: a.snapName}, nil
	case watchnotify.NotifyOpSnapRename:
		return watchnotify.SnapRenamePayload{SrcSnapID: a.snapID, DstSnapName: a.snapName}, nil
	case watchnotify.NotifyOpSnapRemove:
		return watchnotify.SnapRemovePayload{SnapName: a.snapName}, nil
	case watchnotify.NotifyOpRebuildObjectMap:
		return watchnotify.RebuildObjectMapPayload{AsyncRequestID: a.asyncRequestID()}, nil
	}
	return nil, errors.Errorf("cannot build a payload for %v", op)
}

// startsAsyncRequest reports whether op asks another client to run an
// asynchronous operation that ends with an AsyncComplete.
func startsAsyncRequest(op watchnotify.NotifyOp) bool {
	switch op {
	case watchnotify.NotifyOpFlatten, watchnotify.NotifyOpResize, watchnotify.NotifyOpRebuildObjectMap:
		return true
	}
	return false
}

// notifyOutput is the JSON printed after a broadcast.
type notifyOutput struct {
	Acks     map[string]int32  `json:"acks"`
	TimedOut []string          `json:"timed_out"`
	Failed   map[string]string `json:"failed"`
	Result   *int32            `json:"async_result,omitempty"`
}

func newNotifyOutput(res *watch.NotifyResult) *notifyOutput {
	out := &notifyOutput{
		Acks:     map[string]int32{},
		TimedOut: []string{},
		Failed:   map[string]string{},
	}
	for id, resp := range res.Acks {
		out.Acks[id.String()] = resp.Result
	}
	for _, id := range res.TimedOut {
		out.TimedOut = append(out.TimedOut, id.String())
	}
	for id, err := range res.Failed {
		out.Failed[id.String()] = err.Error()
	}
	return out
}

func readPayloadArgs(cmd *cobra.Command) (payloadArgs, error) {
	var a payloadArgs
	var err error
	f := cmd.Flags()
	if a.clientID.Gid, err = f.GetUint64(FlagClientGid); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagClientGid)
	}
	if a.clientID.Handle, err = f.GetUint64(FlagHandle); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagHandle)
	}
	if a.requestID, err = f.GetUint64(FlagRequestID); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagRequestID)
	}
	if a.offset, err = f.GetUint64(FlagOffset); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagOffset)
	}
	if a.total, err = f.GetUint64(FlagTotal); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagTotal)
	}
	if a.result, err = f.GetInt32(FlagResult); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagResult)
	}
	if a.size, err = f.GetUint64(FlagSize); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagSize)
	}
	if a.snapName, err = f.GetString(FlagSnapName); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagSnapName)
	}
	if a.snapID, err = f.GetUint64(FlagSnapID); err != nil {
		return a, errors.Wrapf(err, "%s flag", FlagSnapID)
	}
	return a, nil
}

// GetNotifyCmd returns the command broadcasting one notification.
func GetNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Broadcast a notification to every watcher of an object directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Parse inputs
			dir, err := cmd.Flags().GetString(FlagDir)
			if err != nil {
				return errors.Wrapf(err, "%s flag", FlagDir)
			}
			opName, err := cmd.Flags().GetString(FlagOp)
			if err != nil {
				return errors.Wrapf(err, "%s flag", FlagOp)
			}
			op, err := watchnotify.ParseNotifyOp(opName)
			if err != nil {
				return err
			}
			wait, err := cmd.Flags().GetBool(FlagWait)
			if err != nil {
				return errors.Wrapf(err, "%s flag", FlagWait)
			}
			waitTimeout, err := cmd.Flags().GetDuration(FlagWaitTimeout)
			if err != nil {
				return errors.Wrapf(err, "%s flag", FlagWaitTimeout)
			}
			if wait && !startsAsyncRequest(op) {
				return errors.Errorf("--%s needs an asynchronous operation, not %v", FlagWait, op)
			}
			pargs, err := readPayloadArgs(cmd)
			if err != nil {
				return err
			}
			opts, err := watchOptions(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			// To wait for the outcome this command has to be a watcher itself,
			// and the request must be addressed to it.
			var tracker *watch.AsyncTracker
			if wait {
				tracker = watch.NewAsyncTracker(opts...)
				w, err := watch.NewWatcher(ctx, dir, tracker, opts...)
				if err != nil {
					return err
				}
				defer w.Close()
				pargs.clientID = w.ID()
			}

			payload, err := buildPayload(op, pargs)
			if err != nil {
				return err
			}
			if tracker != nil {
				if err := tracker.Track(pargs.asyncRequestID()); err != nil {
					return err
				}
			}

			res, err := watch.NewNotifier(dir, opts...).Notify(ctx, watchnotify.NewNotifyMessage(payload))
			if err != nil {
				return err
			}
			out := newNotifyOutput(res)

			if tracker != nil {
				waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
				defer cancel()
				result, err := tracker.Wait(waitCtx, pargs.asyncRequestID())
				if err != nil {
					return errors.Wrap(err, "waiting for async completion")
				}
				out.Result = &result
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	addWatchFlags(cmd)
	cmd.Flags().String(FlagOp, "", "notify op to send, e.g. HeaderUpdate or SnapCreate")
	cmd.MarkFlagRequired(FlagOp)
	cmd.Flags().Uint64(FlagClientGid, 0, "(optional) gid of the payload's client id")
	cmd.Flags().Uint64(FlagHandle, 0, "(optional) handle of the payload's client id")
	cmd.Flags().Uint64(FlagRequestID, 0, "(optional) async request number")
	cmd.Flags().Uint64(FlagOffset, 0, "(optional) AsyncProgress offset")
	cmd.Flags().Uint64(FlagTotal, 0, "(optional) AsyncProgress total")
	cmd.Flags().Int32(FlagResult, 0, "(optional) AsyncComplete result")
	cmd.Flags().Uint64(FlagSize, 0, "(optional) Resize size")
	cmd.Flags().String(FlagSnapName, "", "(optional) snapshot name")
	cmd.Flags().Uint64(FlagSnapID, 0, "(optional) SnapRename source snapshot id")
	cmd.Flags().Bool(FlagWait, false, "(optional) wait for the AsyncComplete of an asynchronous operation")
	cmd.Flags().Duration(FlagWaitTimeout, time.Minute, "(optional) how long to wait with --"+FlagWait)
	return cmd
}

func init() {
	rootCmd.AddCommand(GetNotifyCmd())
}
