package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/multidesk/internal/config"
	"github.com/1broseidon/multidesk/internal/ipc"
	"github.com/1broseidon/multidesk/internal/palette"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "owner":
		os.Exit(runOwner(os.Args[2:]))
	case "show":
		os.Exit(runShow(os.Args[2:]))
	case "switch":
		os.Exit(runSwitch(os.Args[2:]))
	case "visible":
		os.Exit(runVisible(os.Args[2:]))
	case "notify":
		os.Exit(runNotify(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "palette":
		os.Exit(runPalette(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: multidesk <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the multidesk daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  windows             List tracked windows and their owners")
	fmt.Fprintln(w, "  reload              Reload configuration in the running daemon")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  owner get           Show the owner of a window")
	fmt.Fprintln(w, "  owner set           Give an unowned window an owner")
	fmt.Fprintln(w, "  show                Show a window on another user's desktop")
	fmt.Fprintln(w, "  switch              Make a user active")
	fmt.Fprintln(w, "  visible             List users with windows on screen")
	fmt.Fprintln(w, "  notify              Ask whether a notification for a user should be shown")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  palette             Pick a user or window with rofi/dmenu")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'multidesk <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set that reports errors on stderr and prints
// usage lines on -h.
func newFlagSet(name string, usage ...string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		for _, line := range usage {
			fmt.Fprintln(os.Stderr, line)
		}
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags returns an exit code when the command should stop.
func parseFlags(fs *flag.FlagSet, args []string, nargs int) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != nargs {
		if nargs == 0 {
			fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		} else {
			fmt.Fprintf(os.Stderr, "%s takes %d argument(s)\n", fs.Name(), nargs)
		}
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "Usage: multidesk status", "", "Show daemon status via IPC.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return fail(err)
	}
	fmt.Printf("daemon_running:    %v\n", status.DaemonRunning)
	fmt.Printf("active_user:       %s\n", status.ActiveUser)
	fmt.Printf("users:             %s\n", strings.Join(status.Users, ","))
	fmt.Printf("mode:              %s\n", status.Mode)
	fmt.Printf("shared:            %v\n", status.Shared)
	fmt.Printf("animation_speed:   %s\n", status.AnimationSpeed)
	fmt.Printf("animation_running: %v\n", status.AnimationRunning)
	fmt.Printf("window_count:      %d\n", status.WindowCount)
	fmt.Printf("owned_count:       %d\n", status.OwnedCount)
	fmt.Printf("uptime_seconds:    %d\n", status.UptimeSeconds)
	return 0
}

func runWindows(args []string) int {
	fs := newFlagSet("windows", "Usage: multidesk windows [--owner USER]", "")
	owner := fs.String("owner", "", "Only list windows owned by USER")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	windows, err := ipc.NewClient().ListWindows()
	if err != nil {
		return fail(err)
	}

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	titleWidth := 0
	if tty {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 80 {
			titleWidth = width - 80
		} else {
			titleWidth = 24
		}
	}

	var out io.Writer = os.Stdout
	var tw *tabwriter.Writer
	if tty {
		tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		out = tw
		fmt.Fprintln(out, "WINDOW\tCLASS\tOWNER\tPRESENTED\tSTATE\tMAPPED\tTITLE")
	}
	for _, w := range windows {
		if *owner != "" && w.Owner != *owner {
			continue
		}
		title := w.Title
		if runes := []rune(title); titleWidth > 0 && len(runes) > titleWidth {
			title = string(runes[:titleWidth-1]) + "…"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
			ipc.FormatWindowID(w.ID), dash(w.Class), dash(w.Owner), dash(w.PresentedTo), w.State, w.Visible, title)
	}
	if tw != nil {
		_ = tw.Flush()
	}
	return 0
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printOwnerUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  multidesk owner get <window>")
	fmt.Fprintln(w, "  multidesk owner set <window> <user>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Window ids are accepted in hex (0x3a00007) or decimal.")
}

func runOwner(args []string) int {
	if len(args) == 0 {
		printOwnerUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "get":
		fs := newFlagSet("get", "Usage: multidesk owner get <window>")
		if code, ok := parseFlags(fs, args[1:], 1); !ok {
			return code
		}
		id, err := ipc.ParseWindowID(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		data, err := ipc.NewClient().GetOwner(id)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("window:            %s\n", ipc.FormatWindowID(data.Window))
		fmt.Printf("owner:             %s\n", dash(data.Owner))
		fmt.Printf("presented_to:      %s\n", dash(data.PresentedTo))
		fmt.Printf("on_active_desktop: %v\n", data.OnActiveDesktop)
		return 0

	case "set":
		fs := newFlagSet("set", "Usage: multidesk owner set <window> <user>")
		if code, ok := parseFlags(fs, args[1:], 2); !ok {
			return code
		}
		id, err := ipc.ParseWindowID(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		if err := ipc.NewClient().SetOwner(id, fs.Arg(1)); err != nil {
			return fail(err)
		}
		return 0

	case "help", "-h", "--help":
		printOwnerUsage(os.Stdout)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown owner subcommand: %s\n\n", args[0])
		printOwnerUsage(os.Stderr)
		return 2
	}
}

func runShow(args []string) int {
	fs := newFlagSet("show",
		"Usage: multidesk show [--follow] <window> <user>",
		"",
		"Show an owned window on user's desktop without changing its owner.",
	)
	follow := fs.Bool("follow", false, "Switch to user and focus the window afterwards")
	if code, ok := parseFlags(fs, args, 2); !ok {
		return code
	}
	id, err := ipc.ParseWindowID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	shown, err := ipc.NewClient().ShowForUser(id, fs.Arg(1), *follow)
	if err != nil {
		return fail(err)
	}
	if !shown {
		fmt.Fprintf(os.Stderr, "window %s was not moved\n", ipc.FormatWindowID(id))
		return 1
	}
	return 0
}

func runSwitch(args []string) int {
	fs := newFlagSet("switch", "Usage: multidesk switch <user>")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}
	if err := ipc.NewClient().SwitchUser(fs.Arg(0)); err != nil {
		return fail(err)
	}
	return 0
}

func runVisible(args []string) int {
	fs := newFlagSet("visible", "Usage: multidesk visible", "", "List users owning a window on the active desktop.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	data, err := ipc.NewClient().VisibleOwners()
	if err != nil {
		return fail(err)
	}
	for _, owner := range data.Owners {
		fmt.Println(owner)
	}
	return 0
}

func runNotify(args []string) int {
	fs := newFlagSet("notify",
		"Usage: multidesk notify [--popup] <user>",
		"",
		"Exit 0 when a notification for user should be shown, 1 when it should be",
		"suppressed. Notification daemons can call this before displaying.",
	)
	popup := fs.Bool("popup", false, "The notification is a popup")
	quiet := fs.Bool("quiet", false, "Do not print the decision")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}
	show, err := ipc.NewClient().ShouldNotify(fs.Arg(0), *popup)
	if err != nil {
		return fail(err)
	}
	if !*quiet {
		if show {
			fmt.Println("show")
		} else {
			fmt.Println("suppress")
		}
	}
	if !show {
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "Usage: multidesk reload")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		return fail(err)
	}
	fmt.Println("config reloaded")
	return 0
}

func runPalette(args []string) int {
	fs := newFlagSet("palette",
		"Usage: multidesk palette [--backend NAME]",
		"",
		"Enter on a user switches to them. Enter on a window brings it to the",
		"active desktop; Alt+Return switches to the window's desktop instead.",
	)
	backendName := fs.String("backend", "", "Launcher to use: auto, rofi or dmenu (default: palette_backend)")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	name := *backendName
	if name == "" {
		if cfg, err := config.Load(); err == nil {
			name = cfg.PaletteBackend
		}
	}
	backend, err := palette.NewBackend(name)
	if err != nil {
		return fail(err)
	}
	if err := palette.Run(backend, ipc.NewClient()); err != nil {
		if errors.Is(err, palette.ErrCancelled) {
			return 0
		}
		return fail(err)
	}
	return 0
}

func loadConfigResult(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  multidesk config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  multidesk config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  multidesk config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/multidesk/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		res, err := loadConfigResult(*path)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("config: ok (%d file(s))\n", len(res.Files))
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/multidesk/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		printEffective := fs.Bool("effective", false, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			_ = printEffective // default
			res, err := loadConfigResult(*path)
			if err != nil {
				return fail(err)
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fail(err)
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/multidesk/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfigResult(*path)
		if err != nil {
			return fail(err)
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			return fail(err)
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			return fail(err)
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		return "default"
	default:
		return string(src.Kind)
	}
}
