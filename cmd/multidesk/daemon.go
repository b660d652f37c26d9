package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/1broseidon/multidesk/internal/banner"
	"github.com/1broseidon/multidesk/internal/config"
	"github.com/1broseidon/multidesk/internal/daemon"
	"github.com/1broseidon/multidesk/internal/hotkeys"
	"github.com/1broseidon/multidesk/internal/ipc"
	"github.com/1broseidon/multidesk/internal/platform"
	"github.com/1broseidon/multidesk/internal/runtimepath"
	"github.com/1broseidon/multidesk/internal/x11"
)

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "Usage: multidesk daemon [--config PATH] [--no-watch]", "")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/multidesk/config.yaml)")
	noWatch := fs.Bool("no-watch", false, "Do not reload when the config file changes")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	if *configPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
		*configPath = p
	}
	loadConfig := func() (*config.Config, error) {
		res, err := config.LoadFromPath(*configPath)
		if err != nil {
			return nil, err
		}
		return res.Config, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded (users: %d, mode: %s, rules: %d)", len(cfg.AllUsers()), cfg.Mode, len(cfg.Rules))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}
	conn, err := x11.NewConnection(cfg.Display)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	backend := platform.NewLinuxBackend(conn, logger)
	defer backend.Disconnect()

	registryPath, err := runtimepath.RegistryPath()
	if err != nil {
		log.Printf("Warning: owner registry disabled: %v", err)
		registryPath = ""
	}

	opts := daemon.Options{
		Config:       cfg,
		Windows:      backend,
		RegistryPath: registryPath,
		LoadConfig:   loadConfig,
		Logger:       logger,
	}
	if d := cfg.BannerDuration(); d > 0 {
		overlay := banner.NewOverlay(backend.XUtil(), d, cfg.BannerPlacement(), logger)
		defer overlay.Close()
		opts.Announcer = overlay
	}
	svc := daemon.NewService(opts)

	if err := backend.Listen(daemon.Handlers(svc)); err != nil {
		log.Fatalf("Failed to select root window events: %v", err)
	}

	hotkeyHandler := hotkeys.NewHandler(backend, logger)
	for _, err := range hotkeyHandler.RegisterSwitches(cfg.SwitchHotkeys, svc) {
		log.Printf("Warning: %v", err)
	}

	if cfg.PaletteHotkey != "" {
		if err := hotkeyHandler.RegisterFunc(cfg.PaletteHotkey, launchPalette); err != nil {
			log.Printf("Warning: Failed to register palette hotkey: %v", err)
		} else {
			log.Printf("Palette hotkey registered: %s", cfg.PaletteHotkey)
		}
	}

	clients, err := backend.ClientWindows()
	if err != nil {
		log.Printf("Warning: failed to read client list: %v", err)
	}
	svc.Scan(clients)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Run(ctx)
	}()

	ipcServer, err := ipc.NewServer(svc)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	if interval := cfg.ReconcileInterval(); interval > 0 {
		reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
			Interval: interval,
			Logger:   logger,
		}, svc)
		go reconciler.Run(ctx)
	}

	if !*noWatch {
		watcher, err := config.NewWatcher(*configPath, func() {
			if err := svc.Reload(); err != nil {
				logger.Warn("config reload failed", "error", err)
			}
		}, logger)
		if err != nil {
			log.Printf("Warning: config watch disabled: %v", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading config...")
				if err := svc.Reload(); err != nil {
					log.Printf("Config reload failed: %v", err)
					continue
				}
				log.Println("Config reloaded successfully")

			case os.Interrupt, syscall.SIGTERM:
				log.Println("Shutting down multidesk daemon...")
				ipcServer.Stop()
				cancel()
				wg.Wait()
				svc.Shutdown()
				conn.Quit()
				return
			}
		}
	}()

	if st, err := svc.Status(); err == nil {
		log.Printf("multidesk daemon started (active user: %s)", st.ActiveUser)
	}
	backend.EventLoop()
	signal.Stop(sigCh)
	fmt.Fprintln(os.Stderr, "multidesk daemon stopped")
	return 0
}

// launchPalette runs "multidesk palette" as a child so the X event loop
// is not blocked while the picker is open.
func launchPalette() {
	exe, err := os.Executable()
	if err != nil {
		log.Printf("Palette: failed to find executable: %v", err)
		return
	}
	cmd := exec.Command(exe, "palette")
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		log.Printf("Palette: failed to launch: %v", err)
		return
	}
	go cmd.Wait()
}
