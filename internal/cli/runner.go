package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tada-remote/internal/api"
	"github.com/idilsaglam/tada-remote/internal/config"
	"github.com/idilsaglam/tada-remote/internal/model"
	"github.com/idilsaglam/tada-remote/internal/todos"
	"github.com/idilsaglam/tada-remote/internal/ui"
)

// Options carry resolved config and output streams into the runner.
type Options struct {
	Config *config.Config
	Logger *log.Logger // diagnostics for one-shot commands (stderr)
	Stdout io.Writer
	Stderr io.Writer

	// HTTPOptions are passed to every api.New call.
	HTTPOptions []api.Option
}

func (o *Options) fill() {
	if o.Config == nil {
		o.Config = &config.Config{}
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	opt.fill()
	if len(args) == 0 {
		PrintHelp(opt.Stderr)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Stdout)
		return 0

	case "ls":
		fs := newFlagSet("ls", opt.Stderr)
		plain := fs.Bool("plain", false, "print the list instead of opening the interactive view")
		if err := fs.Parse(a); err != nil {
			return 2
		}
		return doList(ctx, opt, *plain)

	case "add":
		fs := newFlagSet("add", opt.Stderr)
		desc := fs.String("d", "", "description")
		if err := fs.Parse(a); err != nil {
			return 2
		}
		if fs.NArg() == 0 {
			ui.Fail(opt.Stderr, "usage: todo add [-d description] <title...>")
			return 2
		}
		return doAdd(ctx, opt, strings.Join(fs.Args(), " "), *desc)

	case "done":
		if len(a) != 1 {
			ui.Fail(opt.Stderr, "usage: todo done <index|id>")
			return 2
		}
		return doToggle(ctx, opt, a[0])

	case "edit":
		fs := newFlagSet("edit", opt.Stderr)
		title := fs.String("title", "", "new title")
		desc := fs.String("d", "", "new description")
		if len(a) == 0 {
			ui.Fail(opt.Stderr, "usage: todo edit <index|id> [-title t] [-d description]")
			return 2
		}
		ref := a[0]
		if err := fs.Parse(a[1:]); err != nil {
			return 2
		}
		var set []string
		fs.Visit(func(f *flag.Flag) { set = append(set, f.Name) })
		if len(set) == 0 || fs.NArg() > 0 {
			ui.Fail(opt.Stderr, "usage: todo edit <index|id> [-title t] [-d description]")
			return 2
		}
		return doEdit(ctx, opt, ref, editFields{
			title: *title, titleSet: contains(set, "title"),
			desc: *desc, descSet: contains(set, "d"),
		})

	case "rm":
		if len(a) != 1 {
			ui.Fail(opt.Stderr, "usage: todo rm <index|id>")
			return 2
		}
		return doRemove(ctx, opt, a[0])

	case "show":
		if len(a) != 1 {
			ui.Fail(opt.Stderr, "usage: todo show <index|id>")
			return 2
		}
		return doShow(ctx, opt, a[0])

	case "dev-server":
		fs := newFlagSet("dev-server", opt.Stderr)
		addr := fs.String("addr", "127.0.0.1:8080", "listen address")
		data := fs.String("data", "", "JSON file to keep todos in (in-memory if empty)")
		if err := fs.Parse(a); err != nil {
			return 2
		}
		return doDevServer(ctx, opt, *addr, *data)
	}

	ui.Fail(opt.Stderr, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Stderr)
	PrintHelp(opt.Stderr)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `todo - a tiny client for a remote todo API

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  ls [-plain]                        List todos (interactive unless -plain or not a terminal)
  add [-d desc] <title...>           Create a todo (title can be multiple words)
  done <ref>                         Toggle completed
  edit <ref> [-title t] [-d desc]    Change title and/or description
  rm <ref>                           Delete a todo
  show <ref>                         Show one todo
  dev-server [-addr a] [-data f]     Run a local API for trying things out

  <ref> is a 1-based index from ls or a todo id.

Flags:
  -api URL          API base URL (or TADA_API_URL, or api_url in ~/.tada/config.toml)
  -group            group plain output by pending/done
  -theme NAME       classic | neon | mono
  -log-level LEVEL  debug | info | warn | error
  -metrics-addr A   serve client metrics while the interactive list is open

Examples:
  todo -api http://127.0.0.1:8080 add "Buy milk"
  todo ls
  todo done 2
  todo rm 3
`)
}

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// newClient builds the API-backed todos client, or reports why it cannot.
func newClient(opt Options, logger *log.Logger, extra ...api.Option) (*todos.Client, *api.Client, int) {
	u, err := opt.Config.RequireAPIURL()
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		fmt.Fprintln(opt.Stderr, ui.Current().Muted.Render("Hint: pass -api URL, set TADA_API_URL, or add api_url to ~/.tada/config.toml"))
		return nil, nil, 2
	}
	ac, err := api.New(u, append(opt.HTTPOptions, extra...)...)
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return nil, nil, 2
	}
	return todos.New(ac, logger), ac, 0
}

// loadClient builds a client and fetches the collection.
func loadClient(ctx context.Context, opt Options) (*todos.Client, int) {
	c, _, code := newClient(opt, opt.Logger)
	if code != 0 {
		return nil, code
	}
	if err := c.Load(ctx); err != nil {
		ui.Fail(opt.Stderr, "load: "+err.Error())
		return nil, 1
	}
	return c, 0
}

// resolve finds a todo by 1-based index or id.
func resolve(opt Options, c *todos.Client, ref string) (model.Todo, int) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(c.Items) {
			return c.Items[n-1], 0
		}
		if _, ok := c.Find(ref); !ok {
			ui.Fail(opt.Stderr, fmt.Sprintf("index out of range: have %d, got %d", len(c.Items), n))
			fmt.Fprintln(opt.Stderr, ui.Current().Muted.Render("Hint: run `todo ls` to see valid indexes"))
			return model.Todo{}, 2
		}
	}
	if t, ok := c.Find(ref); ok {
		return t, 0
	}
	ui.Fail(opt.Stderr, fmt.Sprintf("no todo with id %q", ref))
	return model.Todo{}, 2
}

func doAdd(ctx context.Context, opt Options, title, desc string) int {
	title = strings.TrimSpace(title)
	if title == "" {
		ui.Fail(opt.Stderr, "add: empty title")
		return 2
	}
	c, _, code := newClient(opt, opt.Logger)
	if code != 0 {
		return code
	}
	if err := c.Create(ctx, title, desc); err != nil {
		ui.Fail(opt.Stderr, "add: "+err.Error())
		return 1
	}
	created := c.Items[len(c.Items)-1]
	ui.OK(opt.Stdout, "added "+created.TodoID)
	return 0
}

func doToggle(ctx context.Context, opt Options, ref string) int {
	c, code := loadClient(ctx, opt)
	if code != 0 {
		return code
	}
	t, code := resolve(opt, c, ref)
	if code != 0 {
		return code
	}
	if err := c.ToggleComplete(ctx, t); err != nil {
		ui.Fail(opt.Stderr, "done: "+err.Error())
		return 1
	}
	if got, _ := c.Find(t.TodoID); got.Completed {
		ui.OK(opt.Stdout, "marked done")
	} else {
		ui.OK(opt.Stdout, "marked pending")
	}
	return 0
}

type editFields struct {
	title    string
	titleSet bool
	desc     string
	descSet  bool
}

func doEdit(ctx context.Context, opt Options, ref string, f editFields) int {
	c, code := loadClient(ctx, opt)
	if code != 0 {
		return code
	}
	t, code := resolve(opt, c, ref)
	if code != 0 {
		return code
	}
	c.BeginEdit(t)
	if f.titleSet {
		c.Form.Title = f.title
	}
	if f.descSet {
		c.Form.Description = f.desc
	}
	if strings.TrimSpace(c.Form.Title) == "" {
		c.CancelEdit()
		ui.Fail(opt.Stderr, "edit: empty title")
		return 2
	}
	if err := c.SaveEdit(ctx); err != nil {
		ui.Fail(opt.Stderr, "edit: "+err.Error())
		return 1
	}
	ui.OK(opt.Stdout, "updated")
	return 0
}

func doRemove(ctx context.Context, opt Options, ref string) int {
	c, code := loadClient(ctx, opt)
	if code != 0 {
		return code
	}
	t, code := resolve(opt, c, ref)
	if code != 0 {
		return code
	}
	if err := c.Delete(ctx, t.TodoID); err != nil {
		ui.Fail(opt.Stderr, "rm: "+err.Error())
		return 1
	}
	ui.OK(opt.Stdout, "removed")
	return 0
}

func doShow(ctx context.Context, opt Options, ref string) int {
	c, ac, code := newClient(opt, opt.Logger)
	if code != 0 {
		return code
	}
	// An id goes straight to GET /todos/{id}; an index needs the list.
	if _, err := strconv.Atoi(ref); err != nil {
		t, err := ac.Get(ctx, ref)
		if errors.Is(err, api.ErrNotFound) {
			ui.Fail(opt.Stderr, fmt.Sprintf("no todo with id %q", ref))
			return 2
		}
		if err != nil {
			opt.Logger.Error("get todo", "op", "get", "id", ref, "err", err)
			ui.Fail(opt.Stderr, "show: "+err.Error())
			return 1
		}
		printTodo(opt.Stdout, t)
		return 0
	}
	if err := c.Load(ctx); err != nil {
		ui.Fail(opt.Stderr, "load: "+err.Error())
		return 1
	}
	t, code := resolve(opt, c, ref)
	if code != 0 {
		return code
	}
	printTodo(opt.Stdout, t)
	return 0
}
