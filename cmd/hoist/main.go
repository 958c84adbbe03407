package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hoistdl/hoist/internal/channels"
	"github.com/hoistdl/hoist/internal/clipboard"
	"github.com/hoistdl/hoist/internal/config"
	"github.com/hoistdl/hoist/internal/database"
	"github.com/hoistdl/hoist/internal/engine"
	"github.com/hoistdl/hoist/internal/executor"
	"github.com/hoistdl/hoist/internal/history"
	"github.com/hoistdl/hoist/internal/httpclient"
	"github.com/hoistdl/hoist/internal/settings"
	"github.com/hoistdl/hoist/internal/tui"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile  string
	logLevel string
	noColor  bool

	// Global config and logger. cfgMu guards cfg against the hot-reload
	// callback racing the live accessors.
	cfgMu  sync.RWMutex
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hoist",
	Short: "A queue-driven downloader for videos, playlists, and channel feeds",
	Long: `hoist wraps yt-dlp with a concurrent download queue, playlist expansion,
and background channel polling with automatic downloads.

Settings are captured per job at submission time, so edits to the config
never disturb downloads already queued. Network settings (cookies, proxy,
rate limit) are the exception and always apply to the next attempt.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for config init command
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var err error
		var v *viper.Viper
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if noColor {
			cfg.Logging.Color = false
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := database.Init(&cfg.Database); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		// Stored settings overrides layer on top of the config file
		settingsSvc, err := settings.NewService(database.DB)
		if err != nil {
			return fmt.Errorf("failed to initialize settings: %w", err)
		}
		cfg.Downloads, err = settingsSvc.LoadDownloads(cfg.Downloads)
		if err != nil {
			return fmt.Errorf("failed to load stored settings: %w", err)
		}

		// Setup hot reload. Jobs already queued keep their snapshot; the
		// reloaded values apply to new submissions and the next dispatch.
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			logger.Info("config file changed", "name", e.Name)
			var updated config.Config
			if err := v.Unmarshal(&updated); err != nil {
				logger.Error("failed to reload config", "error", err)
				return
			}
			cfgMu.Lock()
			cfg.Downloads = updated.Downloads
			cfg.Network = updated.Network
			cfg.Channels = updated.Channels
			cfgMu.Unlock()
		})

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := database.Close(); err != nil && logger != nil {
			logger.Error("failed to close database", "error", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/hoist/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Live config accessors. Each read takes the lock so hot reloads apply to
// the very next use without restarting anything.

func currentNetwork() engine.NetworkConfig {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return engine.CaptureNetwork(&cfg.Network)
}

func concurrentLimit() int {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.Downloads.Concurrent
}

func captureSnapshot() engine.SettingsSnapshot {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return engine.CaptureSnapshot(&cfg.Downloads)
}

func pollSettings() channels.PollSettings {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return channels.PollSettings{
		Interval:     cfg.Channels.PollInterval,
		FetchRetries: cfg.Channels.FetchRetries,
		AutoDownload: cfg.Channels.AutoDownload,
	}
}

// engineParts bundles the shared download machinery. One set per process,
// manual submissions and channel auto-downloads all flow through it.
type engineParts struct {
	queue      *engine.Queue
	sched      *engine.Scheduler
	correlator *engine.Correlator
	runner     *executor.Runner
	history    *history.Service
}

func buildEngine() (*engineParts, error) {
	runner, err := executor.NewRunner(logger)
	if err != nil {
		return nil, err
	}

	queue := engine.NewQueue()
	table := engine.NewCorrelationTable()

	sched, err := engine.NewScheduler(queue, runner, table, concurrentLimit, currentNetwork, logger)
	if err != nil {
		return nil, err
	}

	correlator, err := engine.NewCorrelator(queue, table, runner.Events(), logger)
	if err != nil {
		return nil, err
	}

	historySvc, err := history.NewService(database.DB)
	if err != nil {
		return nil, err
	}
	sched.OnJobCompleted(func(job engine.Job) {
		if err := historySvc.Record(job); err != nil {
			logger.Error("failed to record download in history", "job_id", job.ID, "error", err)
		}
	})

	return &engineParts{
		queue:      queue,
		sched:      sched,
		correlator: correlator,
		runner:     runner,
		history:    historySvc,
	}, nil
}

// addCmd submits URLs for download
var addCmd = &cobra.Command{
	Use:   "add [url...]",
	Short: "Download one or more URLs (playlists expand automatically)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromClipboard, _ := cmd.Flags().GetBool("clipboard")
		limit, _ := cmd.Flags().GetInt("limit")
		noTUI, _ := cmd.Flags().GetBool("no-tui")

		clipSvc := clipboard.NewService(cfg.Clipboard.Command, logger)

		urls := args
		if fromClipboard {
			clipURLs, err := clipSvc.ReadURLs()
			if err != nil {
				return fmt.Errorf("failed to read clipboard: %w", err)
			}
			urls = append(urls, clipURLs...)
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs given (pass them as arguments or use --clipboard)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		parts, err := buildEngine()
		if err != nil {
			return err
		}

		authHint := false
		parts.sched.OnAuthRequired(func(jobID string) {
			authHint = true
		})

		go parts.correlator.Run(ctx)

		resolver, err := executor.NewFlatPlaylistResolver(currentNetwork, logger)
		if err != nil {
			return err
		}

		if limit == 0 {
			limit = cfg.Downloads.PlaylistLimit
		}

		snap := captureSnapshot()
		for _, url := range urls {
			for _, desc := range engine.ExpandDescriptors(ctx, resolver, url, limit, snap, logger) {
				if _, err := parts.queue.Enqueue(desc); err != nil {
					logger.Warn("skipping url", "url", desc.URL, "reason", err)
				}
			}
		}

		if parts.queue.Len() == 0 {
			return fmt.Errorf("nothing to download")
		}

		if err := parts.sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start downloads: %w", err)
		}

		if noTUI {
			if err := monitorPlain(ctx, parts); err != nil {
				return err
			}
		} else {
			model := tui.NewWatch(parts.queue, parts.sched, clipSvc)
			model.ExitWhenDone = true
			if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("watch view failed: %w", err)
			}
		}

		// Let in-flight cancellations settle before summarizing
		_ = parts.sched.Stop(context.Background())
		parts.sched.Wait()

		printSummary(parts.queue.Jobs())
		if authHint {
			fmt.Println("\nSome downloads need authentication. Point network.cookies_path at a fresh")
			fmt.Println("cookies file (or set network.cookies_from_browser) and run the command again.")
		}
		return nil
	},
}

// monitorPlain polls the queue and prints a one-line progress summary until
// every job settles. Used when the TUI is suppressed (scripts, cron).
func monitorPlain(ctx context.Context, parts *engineParts) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted, returning active downloads to pending...")
			return nil
		case <-ticker.C:
		}

		jobs := parts.queue.Jobs()
		done, failed, active := 0, 0, 0
		for _, j := range jobs {
			switch j.Status {
			case engine.StatusCompleted:
				done++
			case engine.StatusError:
				failed++
			case engine.StatusDownloading:
				active++
			}
		}
		fmt.Printf("\r%d/%d completed, %d active, %d failed", done, len(jobs), active, failed)

		if done+failed == len(jobs) {
			fmt.Println()
			return nil
		}
	}
}

func printSummary(jobs []engine.Job) {
	done, failed := 0, 0
	for _, j := range jobs {
		switch j.Status {
		case engine.StatusCompleted:
			done++
		case engine.StatusError:
			failed++
		}
	}
	fmt.Printf("Completed %d of %d downloads\n", done, len(jobs))
	for _, j := range jobs {
		if j.Status != engine.StatusError {
			continue
		}
		title := j.Title
		if title == "" {
			title = j.URL
		}
		fmt.Printf("  failed: %s (%s)\n", title, j.Error)
	}
	if failed > 0 {
		fmt.Println("Run the same command again to retry failed downloads.")
	}
}

// runCmd starts the long-running daemon that polls tracked channels
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the channel poller daemon",
	Long: `Polls tracked channel feeds on an interval and automatically downloads
new videos through the shared queue. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		parts, err := buildEngine()
		if err != nil {
			return err
		}

		store, err := channels.NewStore(database.DB)
		if err != nil {
			return err
		}

		// Terminal events flip the durable per-video state so the next poll
		// skips finished videos and re-offers failed ones
		parts.correlator.SetChannelHooks(
			func(target engine.ChannelTarget) {
				if err := store.MarkDownloaded(target.VideoID); err != nil {
					logger.Error("failed to mark video downloaded", "video_id", target.VideoID, "error", err)
				}
			},
			func(target engine.ChannelTarget) {
				if err := store.MarkNew(target.VideoID); err != nil {
					logger.Error("failed to reset video state", "video_id", target.VideoID, "error", err)
				}
			},
		)
		parts.sched.OnAuthRequired(func(jobID string) {
			logger.Warn("download needs authentication, refresh cookies in the network config", "job_id", jobID)
		})

		go parts.correlator.Run(ctx)

		clientCfg := httpclient.DefaultConfig()
		clientCfg.Proxy = cfg.Network.Proxy
		clientCfg.Logger = logger
		fetcher, err := channels.NewFetcher(httpclient.New(clientCfg), logger)
		if err != nil {
			return err
		}

		poller, err := channels.NewPoller(store, fetcher, parts.queue, parts.sched, pollSettings, captureSnapshot, logger)
		if err != nil {
			return err
		}

		logger.Info("hoist daemon starting", "version", version, "poll_interval", pollSettings().Interval)
		poller.Run(ctx)

		logger.Info("shutting down, cancelling active downloads")
		_ = parts.sched.Stop(context.Background())
		parts.sched.Wait()
		return nil
	},
}

// channelsCmd manages tracked channels
var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Manage tracked channels",
}

var channelsAddCmd = &cobra.Command{
	Use:   "add <channel-id>",
	Short: "Track a channel for automatic downloads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		noAuto, _ := cmd.Flags().GetBool("no-auto")

		store, err := channels.NewStore(database.DB)
		if err != nil {
			return err
		}

		channel, err := store.AddChannel(args[0], name, !noAuto)
		if err != nil {
			return fmt.Errorf("failed to add channel: %w", err)
		}

		fmt.Printf("Tracking channel %s\n", channel.ChannelID)
		fmt.Printf("Feed: %s\n", channel.FeedURL)
		if channel.AutoDownload {
			fmt.Println("New videos will download automatically while 'hoist run' is active.")
		} else {
			fmt.Println("Auto-download is off for this channel; new videos are only recorded.")
		}
		return nil
	},
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := channels.NewStore(database.DB)
		if err != nil {
			return err
		}

		tracked, err := store.ListChannels()
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}
		if len(tracked) == 0 {
			fmt.Println("No channels tracked. Add one with 'hoist channels add <channel-id>'.")
			return nil
		}

		fmt.Printf("Tracked channels (%d):\n\n", len(tracked))
		for _, c := range tracked {
			auto := "auto"
			if !c.AutoDownload {
				auto = "manual"
			}
			name := c.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("- %s  %s  [%s]  added %s\n", c.ChannelID, name, auto, humanize.Time(c.CreatedAt))
		}
		return nil
	},
}

var channelsRemoveCmd = &cobra.Command{
	Use:   "remove <channel-id>",
	Short: "Stop tracking a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := channels.NewStore(database.DB)
		if err != nil {
			return err
		}

		if err := store.RemoveChannel(args[0]); err != nil {
			return fmt.Errorf("failed to remove channel: %w", err)
		}
		fmt.Printf("Stopped tracking %s\n", args[0])
		return nil
	},
}

func init() {
	channelsAddCmd.Flags().StringP("name", "n", "", "display name for the channel")
	channelsAddCmd.Flags().Bool("no-auto", false, "record new videos without downloading them")

	channelsCmd.AddCommand(channelsAddCmd)
	channelsCmd.AddCommand(channelsListCmd)
	channelsCmd.AddCommand(channelsRemoveCmd)
}

// historyCmd inspects the download log
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect completed downloads",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List completed downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		limit, _ := cmd.Flags().GetInt("limit")
		sortBy, _ := cmd.Flags().GetString("sort")

		svc, err := history.NewService(database.DB)
		if err != nil {
			return err
		}

		items, err := svc.List(history.FilterOptions{
			SearchQuery: filter,
			Limit:       limit,
			SortBy:      history.SortOrder(sortBy),
		})
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No downloads recorded.")
			return nil
		}

		for _, item := range items {
			line := item.Title
			if item.FileSize > 0 {
				line += "  " + humanize.Bytes(uint64(item.FileSize))
			}
			if item.Resolution != "" {
				line += "  " + item.Resolution
			}
			if item.CompletedAt != nil {
				line += "  " + humanize.Time(*item.CompletedAt)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := history.NewService(database.DB)
		if err != nil {
			return err
		}

		stats, err := svc.GetStats()
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		fmt.Printf("Downloads: %d\n", stats.TotalItems)
		fmt.Printf("Total size: %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := history.NewService(database.DB)
		if err != nil {
			return err
		}

		if err := svc.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	historyListCmd.Flags().StringP("filter", "f", "", "fuzzy filter by title")
	historyListCmd.Flags().IntP("limit", "l", 0, "maximum entries to show (0 = all)")
	historyListCmd.Flags().StringP("sort", "s", "recent_first", "sort order (recent_first, oldest_first, title_asc, title_desc, size_desc)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// configCmd handles configuration operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = filepath.Join(config.GetConfigDir(), "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s", configPath)
		}

		if err := config.SaveDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to save default configuration: %w", err)
		}

		fmt.Printf("Default configuration written to %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective download settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Download path: %s\n", cfg.Downloads.Path)
		fmt.Printf("Concurrent downloads: %d\n", cfg.Downloads.Concurrent)
		fmt.Printf("Quality: %s\n", cfg.Downloads.Quality)
		fmt.Printf("Container: %s\n", cfg.Downloads.Container)
		fmt.Printf("Audio only: %v\n", cfg.Downloads.AudioOnly)
		fmt.Printf("Subtitle mode: %s\n", cfg.Downloads.SubtitleMode)
		fmt.Printf("Poll interval: %s\n", cfg.Channels.PollInterval)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			fmt.Println(cfgFile)
		} else {
			fmt.Println(filepath.Join(config.GetConfigDir(), "config.yaml"))
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a download setting override",
	Long: `Stores a download setting in the database, layered over the config file.
Supported keys: quality, container, path, concurrent, audio-only, subtitle-mode.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		updated := cfg.Downloads
		switch key {
		case "quality":
			updated.Quality = value
		case "container":
			updated.Container = value
		case "path":
			updated.Path = value
		case "concurrent":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("concurrent must be a positive integer, got %q", value)
			}
			updated.Concurrent = n
		case "audio-only":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("audio-only must be true or false, got %q", value)
			}
			updated.AudioOnly = b
		case "subtitle-mode":
			switch value {
			case "none", "download", "embed", "auto":
				updated.SubtitleMode = value
			default:
				return fmt.Errorf("subtitle-mode must be none, download, embed, or auto")
			}
		default:
			return fmt.Errorf("unknown setting %q", key)
		}

		svc, err := settings.NewService(database.DB)
		if err != nil {
			return err
		}
		if err := svc.SaveDownloads(updated); err != nil {
			return fmt.Errorf("failed to save setting: %w", err)
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop stored setting overrides, reverting to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := settings.NewService(database.DB)
		if err != nil {
			return err
		}
		if err := svc.Reset(); err != nil {
			return fmt.Errorf("failed to reset settings: %w", err)
		}
		fmt.Println("Stored overrides removed.")
		return nil
	},
}

func init() {
	addCmd.Flags().BoolP("clipboard", "b", false, "also read URLs from the clipboard")
	addCmd.Flags().IntP("limit", "l", 0, "cap playlist expansion at N items (0 = config default)")
	addCmd.Flags().Bool("no-tui", false, "print plain progress instead of the interactive view")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

// versionCmd displays version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hoist version %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}
