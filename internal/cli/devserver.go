package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/idilsaglam/tada-remote/internal/devserver"
	"github.com/idilsaglam/tada-remote/internal/ui"
)

func doDevServer(ctx context.Context, opt Options, addr, dataFile string) int {
	s, err := devserver.New(devserver.Options{DataFile: dataFile, Logger: opt.Logger})
	if err != nil {
		ui.Fail(opt.Stderr, "dev-server: "+err.Error())
		return 1
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		ui.Fail(opt.Stderr, "dev-server: "+err.Error())
		return 1
	}
	if err := serveUntilDone(ctx, s.Handler(), ln, opt); err != nil {
		ui.Fail(opt.Stderr, "dev-server: "+err.Error())
		return 1
	}
	return 0
}

func serveUntilDone(ctx context.Context, h http.Handler, ln net.Listener, opt Options) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	ui.OK(opt.Stdout, "dev server on http://"+ln.Addr().String())
	opt.Logger.Info("dev server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	opt.Logger.Info("dev server stopped")
	return nil
}
