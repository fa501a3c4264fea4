package cli

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada-remote/internal/devserver"
)

func TestServeUntilDone(t *testing.T) {
	s, err := devserver.New(devserver.Options{})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	opt := Options{Stdout: &out, Stderr: &errOut}
	opt.fill()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, s.Handler(), ln, opt) }()

	url := "http://" + ln.Addr().String() + "/todos"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestDevServerBadFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Run(context.Background(), []string{"dev-server", "-port", "1"}, Options{Stdout: &out, Stderr: &errOut})
	assert.Equal(t, 2, code)
}
