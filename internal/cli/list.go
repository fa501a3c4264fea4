package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/idilsaglam/tada-remote/internal/api"
	"github.com/idilsaglam/tada-remote/internal/logging"
	"github.com/idilsaglam/tada-remote/internal/model"
	"github.com/idilsaglam/tada-remote/internal/tui"
	"github.com/idilsaglam/tada-remote/internal/ui"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func doList(ctx context.Context, opt Options, plain bool) int {
	if plain || !isTerminal(opt.Stdout) {
		c, code := loadClient(ctx, opt)
		if code != 0 {
			return code
		}
		printList(opt.Stdout, c.Items, opt.Config.Group)
		return 0
	}
	if _, err := opt.Config.RequireAPIURL(); err != nil {
		_, _, code := newClient(opt, opt.Logger)
		return code
	}
	if err := runInteractive(ctx, opt); err != nil {
		ui.Fail(opt.Stderr, "tui: "+err.Error())
		return 1
	}
	return 0
}

// runInteractive owns the terminal, so diagnostics go to the log file.
func runInteractive(ctx context.Context, opt Options) error {
	logger, f, err := logging.OpenFile(opt.Config.LogFile, logging.Options{
		Level:  opt.Config.LogLevel,
		Format: opt.Config.LogFormat,
	})
	if err != nil {
		return err
	}
	defer f.Close()

	var extra []api.Option
	if opt.Config.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := api.NewMetrics(reg)
		if err != nil {
			return err
		}
		stop, err := serveMetrics(opt.Config.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer stop()
		logger.Info("serving metrics", "addr", opt.Config.MetricsAddr)
		extra = append(extra, api.WithMetrics(m))
	}

	c, _, code := newClient(opt, logger, extra...)
	if code != 0 {
		return errors.New("api client not configured")
	}
	return tui.Run(ctx, c)
}

func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printList(w io.Writer, items []model.Todo, group bool) {
	t := ui.Current()
	done, pending := 0, 0
	for _, it := range items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}

	lines := []string{
		fmt.Sprintf("%s   %s %d  %s %d  %s %d",
			t.Title.Render("Todos"),
			t.Success.Render(t.SymOK), done,
			t.Pending.Render(t.SymDot), pending,
			t.Accent.Render("Total"), len(items)),
		ui.ProgressBar(done, len(items), 28),
		"",
	}
	if len(items) == 0 {
		lines = append(lines, t.Muted.Render("nothing to do"))
		ui.Panel(w, lines)
		return
	}

	line := func(i int, it model.Todo) string {
		text := it.Title
		if it.Completed {
			text = t.Done.Render(text)
		}
		s := fmt.Sprintf("%2d. %s %s", i+1, ui.Checkbox(it.Completed), text)
		if it.Description != "" {
			s += t.Muted.Render(" - " + it.Description)
		}
		return s + t.Muted.Render("  ("+it.TodoID+")")
	}

	if !group {
		for i, it := range items {
			lines = append(lines, line(i, it))
		}
		ui.Panel(w, lines)
		return
	}

	// Indexes stay those of the full list so they still work with done/rm.
	for _, section := range []struct {
		name      string
		completed bool
	}{{"Pending", false}, {"Done", true}} {
		lines = append(lines, t.Accent.Render(section.name))
		for i, it := range items {
			if it.Completed == section.completed {
				lines = append(lines, line(i, it))
			}
		}
	}
	ui.Panel(w, lines)
}

func printTodo(w io.Writer, it model.Todo) {
	t := ui.Current()
	status := t.Pending.Render("pending")
	if it.Completed {
		status = t.Success.Render("done")
	}
	lines := []string{
		ui.Checkbox(it.Completed) + " " + t.Title.Render(it.Title),
	}
	if it.Description != "" {
		lines = append(lines, it.Description)
	}
	lines = append(lines, "",
		t.Muted.Render("id:      ")+it.TodoID,
		t.Muted.Render("status:  ")+status,
	)
	if !it.CreatedAt.IsZero() {
		lines = append(lines, t.Muted.Render("created: ")+it.CreatedAt.Local().Format(time.RFC1123))
	}
	ui.Panel(w, lines)
}
