package cmd

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/conneroisu/switchboard/internal/errors"
	"github.com/conneroisu/switchboard/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRootArgs points rootCmd at args and out, restoring it when the test ends.
func setRootArgs(t *testing.T, out io.Writer, args ...string) {
	t.Helper()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestServeCommandBindFailure(t *testing.T) {
	t.Setenv("SWITCHBOARD_CONFIG_FILE", "")
	port := testutils.OccupyPort(t)

	setRootArgs(t, io.Discard, "serve", "--host", "127.0.0.1", "--port", strconv.Itoa(port))

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.ErrorIs(t, err, errors.ErrBind)
	assert.Contains(t, enhanced.Title, "Failed to start server on port "+strconv.Itoa(port))
	assert.NotEmpty(t, enhanced.Suggestions)
}

func TestServeCommandDrainsOnCancel(t *testing.T) {
	t.Setenv("SWITCHBOARD_CONFIG_FILE", "")
	// The explicit flag outranks PORT.
	t.Setenv("PORT", "1")
	port := freePort(t)
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	setRootArgs(t, &out, "serve", "--host", "127.0.0.1", "--port", strconv.Itoa(port))

	done := make(chan error, 1)
	go func() {
		done <- rootCmd.ExecuteContext(ctx)
	}()

	assert.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond, "server never started listening")

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}

	assert.Contains(t, out.String(), "http://localhost:"+strconv.Itoa(port)+"/")

	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err, "listener is closed after the drain")
}
