package netmgr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFakeChain writes a shell script standing in for the chain binary.
// The scripts ignore the flags the manager passes them.
func writeFakeChain(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a unix shell")
	}
	path := filepath.Join(t.TempDir(), "fakechain")
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestProcessStartupReady(t *testing.T) {
	binary := writeFakeChain(t, `echo "Listening on 127.0.0.1:18545"`+"\n"+`sleep 30`+"\n")
	proc, err := startChainProcess(context.Background(), binary, nil, 18545, 5*time.Second, time.Second)
	require.NoError(t, err)
	require.NotZero(t, proc.pid())

	proc.stop()
	select {
	case <-proc.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after stop")
	}
}

func TestProcessStartupTimeout(t *testing.T) {
	binary := writeFakeChain(t, "sleep 30\n")
	_, err := startChainProcess(context.Background(), binary, nil, 0, 200*time.Millisecond, time.Second)
	require.ErrorIs(t, err, ErrProcessStartupTimeout)
}

func TestProcessStartupExit(t *testing.T) {
	binary := writeFakeChain(t, "exit 3\n")
	_, err := startChainProcess(context.Background(), binary, nil, 0, 5*time.Second, time.Second)
	require.ErrorIs(t, err, ErrProcessStartupFailure)
}

func TestProcessStartupStderr(t *testing.T) {
	binary := writeFakeChain(t, `echo "fatal: address already in use" 1>&2`+"\n"+`sleep 30`+"\n")
	_, err := startChainProcess(context.Background(), binary, nil, 0, 5*time.Second, time.Second)
	require.ErrorIs(t, err, ErrProcessStartupFailure)
	require.Contains(t, err.Error(), "address already in use")
}

func TestProcessStartupCanceled(t *testing.T) {
	binary := writeFakeChain(t, "sleep 30\n")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := startChainProcess(ctx, binary, nil, 0, 5*time.Second, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessForcedKill(t *testing.T) {
	// trap ignores the graceful signal so the kill timer has to fire
	binary := writeFakeChain(t, `trap "" TERM`+"\n"+`echo "Listening on 127.0.0.1:0"`+"\n"+`sleep 30`+"\n")
	proc, err := startChainProcess(context.Background(), binary, nil, 0, 5*time.Second, 300*time.Millisecond)
	require.NoError(t, err)

	proc.stop()
	select {
	case <-proc.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("forced kill never fired")
	}
}
