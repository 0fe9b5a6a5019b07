package watch

import (
	"context"
	"os"
	"testing"

	"github.com/inconshreveable/log15"
)

var l = log15.New()

func tmpDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "watchnotify_test")
	if err != nil {
		panic(err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
