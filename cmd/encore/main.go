package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/encore/internal/adapter"
	"github.com/mmcdole/encore/internal/adapter/backend"
	"github.com/mmcdole/encore/internal/connectivity"
	"github.com/mmcdole/encore/internal/domain"
	"github.com/mmcdole/encore/internal/preload"
	"github.com/mmcdole/encore/internal/stage"
	"github.com/mmcdole/encore/internal/store"
	"github.com/mmcdole/encore/internal/tui"
	"github.com/mmcdole/encore/internal/tui/styles"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                                  \r"

const usageText = `Usage: encore [flags] [command]

Commands:
  pick              choose a setlist (default)
  stage <id>        open a setlist straight in stage mode
  download <id>     download a setlist for offline use
  list              list setlists; downloaded ones are marked
  sync [-schedule]  refresh every downloaded setlist, once or on the configured schedule
  setup             enter backend credentials
  clear-cache       delete the offline cache

Flags:
`

func main() {
	// Handle version flag
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("encore %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Load configuration
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, logFile, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, logFile = adapter.NullLogger(), io.NopCloser(nil)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	logger.Info("starting encore", "version", Version)

	command := "pick"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "setup":
		return runSetupFlow(cfg, logger)
	case "clear-cache":
		if err := adapter.ClearCache(cfg); err != nil {
			return err
		}
		fmt.Println("✓ Offline cache cleared")
		return nil
	}

	// Check if configured
	if !cfg.IsConfigured() {
		return runSetupFlow(cfg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	switch command {
	case "pick":
		return a.runTUI(ctx, tui.NewModel(a.deps()))
	case "stage":
		id, err := setlistArg(command, args)
		if err != nil {
			return err
		}
		return a.runTUI(ctx, tui.NewStageOnlyModel(a.deps(), id))
	case "download":
		id, err := setlistArg(command, args)
		if err != nil {
			return err
		}
		return a.download(ctx, id)
	case "list":
		return a.list(ctx)
	case "sync":
		return a.sync(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func setlistArg(command string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("usage: encore %s <setlist-id>", command)
	}
	return strings.TrimSpace(args[0]), nil
}

// app holds the wired services for one process
type app struct {
	cfg     *adapter.Config
	logger  *slog.Logger
	cache   *store.CacheStore
	monitor *connectivity.Monitor
	preload *preload.Service
	loader  *stage.Loader
}

func newApp(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) (*app, error) {
	cache := store.NewCacheStore(cfg.CacheDir(), cfg.Backend.URL)
	if err := cache.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to open offline cache: %w", err)
	}

	var (
		remote    domain.Remote
		directory domain.SetlistDirectory
		monitor   *connectivity.Monitor
	)
	if cfg.Connectivity.ForceOffline {
		logger.Info("network disabled by configuration")
		remote, directory = offlineRemote{}, offlineRemote{}
		monitor = connectivity.NewForcedOffline(logger)
	} else {
		client := backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, logger)
		remote, directory = client, client

		// Decide the starting state before any screen asks
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		online := client.Ping(probeCtx) == nil
		cancel()

		monitor = connectivity.NewMonitor(online, logger)
		go monitor.Run(ctx, client, cfg.Connectivity.ProbeInterval)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		cache:   cache,
		monitor: monitor,
		preload: preload.NewService(remote, directory, cache, cfg.Sync.Concurrency, logger),
		loader:  stage.NewLoader(remote, cache, monitor, logger),
	}, nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", "error", err)
	}
	a.logger.Info("shutting down")
}

func (a *app) deps() tui.Deps {
	return tui.Deps{
		Catalog:  a.preload,
		Loader:   a.loader,
		Conn:     a.monitor,
		Settings: stageSettings(a.cfg.Stage),
		Logger:   a.logger,
	}
}

// stageSettings maps the configured display defaults onto stage settings
func stageSettings(c adapter.StageConfig) stage.Settings {
	s := stage.DefaultSettings()
	s.FontSize = stage.ParseFontSize(c.FontSize)
	s.DarkMode = c.DarkMode
	s.ShowChords = c.ShowChords
	s.ShowLyrics = c.ShowLyrics
	if c.ScrollSpeed > 0 {
		s.ScrollSpeed = c.ScrollSpeed
	}
	return s
}

func (a *app) runTUI(ctx context.Context, model tui.Model) error {
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	a.logger.Info("starting TUI")

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// download runs download-for-offline with a progress bar on stdout
func (a *app) download(ctx context.Context, setlistID string) error {
	if !a.monitor.IsOnline() {
		return fmt.Errorf("backend unreachable: downloading needs a connection")
	}

	var mu sync.Mutex
	progress := func(loaded, total int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Printf("\r%s %d/%d songs", styles.RenderProgressBar(loaded, total, 30), loaded, total)
	}

	report, err := a.preload.PreloadForOffline(ctx, setlistID, progress)
	fmt.Print(clearSpinnerLine)

	switch {
	case err == nil:
		fmt.Printf("✓ %d of %d songs available offline\n", report.Cached, report.Songs)
		return nil
	case errors.Is(err, domain.ErrPartialPreload):
		fmt.Printf("✗ %d of %d songs downloaded\n", report.Cached, report.Songs)
		for id, ferr := range report.Failed {
			fmt.Printf("  %s: %v\n", id, ferr)
		}
		return err
	default:
		return fmt.Errorf("download failed: %w", err)
	}
}

// list prints the setlists; offline it prints only downloaded ones
func (a *app) list(ctx context.Context) error {
	entries, fromCache, err := a.preload.Setlists(ctx, a.monitor.IsOnline())
	if err != nil {
		return err
	}
	if fromCache {
		fmt.Println("Offline: showing downloaded setlists")
	}
	if len(entries) == 0 {
		fmt.Println("No setlists")
		return nil
	}

	for _, e := range entries {
		mark := styles.UncachedChar
		if e.Cached {
			mark = styles.CachedChar
		}
		title := e.Setlist.Title
		if e.Setlist.Locked {
			title += " " + styles.LockedChar
		}
		fmt.Printf("%s %s %s %s\n", mark, styles.Pad(e.Setlist.ID, 38), styles.Pad(styles.Truncate(title, 40), 40), e.Setlist.GetDescription())
	}
	return nil
}

// sync refreshes downloaded setlists once, or on the configured cron schedule
func (a *app) sync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	schedule := fs.Bool("schedule", false, "keep running and refresh on the configured schedule")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*schedule {
		if !a.monitor.IsOnline() {
			return fmt.Errorf("backend unreachable: sync needs a connection")
		}
		reports, err := a.preload.RefreshCached(ctx)
		fmt.Printf("Refreshed %d setlist(s)\n", len(reports))
		return err
	}

	scheduler := preload.NewScheduler(a.preload, a.monitor, a.logger)
	if err := scheduler.Start(a.cfg.Sync.Schedule); err != nil {
		return err
	}
	fmt.Printf("Syncing on schedule %q; Ctrl+C to stop\n", a.cfg.Sync.Schedule)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(stopCtx)
	return nil
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *adapter.Config, logger *slog.Logger) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("encore is not configured; set ENCORE_BACKEND_URL and ENCORE_BACKEND_API_KEY or run `encore setup` in a terminal")
	}

	fmt.Println()
	fmt.Println("Welcome to Encore!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	// Loop until the backend accepts the credentials
	for {
		fmt.Print("Enter your backend URL (e.g., https://xyz.supabase.co): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		backendURL := strings.TrimRight(strings.TrimSpace(input), "/")
		if backendURL == "" {
			fmt.Println("Backend URL cannot be empty. Please try again.")
			continue
		}

		fmt.Print("API key: ")
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey := strings.TrimSpace(string(keyBytes))
		if apiKey == "" {
			fmt.Println("API key cannot be empty. Please try again.")
			continue
		}

		client := backend.NewClient(backendURL, apiKey, logger)
		if err := verifyWithSpinner(client); err != nil {
			fmt.Printf("\n✗ Could not connect: %v\n", err)
			fmt.Println("Please check the URL and key and try again.")
			fmt.Println()
			continue
		}

		cfg.Backend.URL = backendURL
		cfg.Backend.APIKey = apiKey
		break
	}

	if err := adapter.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run encore again to pick a setlist.")

	return nil
}

// verifyWithSpinner lists setlists once with a visual spinner
func verifyWithSpinner(client *backend.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		_, err := client.FetchSetlists(ctx)
		resultCh <- err
	}()

	frame := 0
	fmt.Printf("\r%s Connecting to backend...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Println("✓ Connected")
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Connecting to backend...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("connection timed out")
		}
	}
}

var errForcedOffline = fmt.Errorf("%w: network disabled by configuration", domain.ErrNetwork)

// offlineRemote stands in for the backend when the network is forced off
type offlineRemote struct{}

func (offlineRemote) FetchSetlist(context.Context, string) (json.RawMessage, error) {
	return nil, errForcedOffline
}

func (offlineRemote) FetchSetlistItems(context.Context, string) ([]json.RawMessage, error) {
	return nil, errForcedOffline
}

func (offlineRemote) FetchSong(context.Context, string) (json.RawMessage, error) {
	return nil, errForcedOffline
}

func (offlineRemote) FetchSetlists(context.Context) ([]json.RawMessage, error) {
	return nil, errForcedOffline
}

func (offlineRemote) UpdateSetlist(context.Context, string, map[string]any) error {
	return errForcedOffline
}
