// Package cli implements the proxy-tray command tree.
// This file contains the run command, which wires storage, the supervisor,
// the controller and the frontends together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yllada/proxy-tray/autolaunch"
	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/config"
	"github.com/yllada/proxy-tray/controller"
	"github.com/yllada/proxy-tray/keyring"
	"github.com/yllada/proxy-tray/storage"
	"github.com/yllada/proxy-tray/supervisor"
	"github.com/yllada/proxy-tray/tui"
	"github.com/yllada/proxy-tray/ui"
)

// reloadTimeout bounds the reload intent submitted by the state file watcher.
const reloadTimeout = 10 * time.Second

var (
	noTrayFlag   bool
	noWindowFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tray and window (default)",
	Args:  cobra.NoArgs,
	RunE:  runApp,
}

func init() {
	runCmd.Flags().BoolVar(&noTrayFlag, "no-tray", false, "run without the tray icon")
	runCmd.Flags().BoolVar(&noWindowFlag, "no-window", false, "start with the window hidden")
}

// app holds the long-lived components of a running instance.
type app struct {
	dataDir  string
	cfg      *config.Config
	store    storage.Store
	sup      *supervisor.Supervisor
	ctrl     *controller.Controller
	watcher  *storage.Watcher
	notifier *ui.DesktopNotifier
}

func runApp(cmd *cobra.Command, args []string) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	if err := common.PrepareDataDir(dataDir); err != nil {
		return err
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v, using defaults\n", styleWarning.Render("Warning:"), err)
		cfg = config.DefaultConfig()
	}

	// The window needs an interactive terminal on both ends
	windowAvailable := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	showWindow := windowAvailable && !noWindowFlag

	level := common.ParseLevel(cfg.LogLevel)
	if verboseFlag {
		level = common.LevelDebug
	}
	logCfg := common.LogConfig{Level: level, EnableFile: true, Dir: common.LogDir(dataDir)}
	if windowAvailable {
		logCfg.Console = io.Discard
	}
	if err := common.InitLogger(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s could not initialize file logging: %v\n", styleWarning.Render("Warning:"), err)
	}
	defer common.CloseLogger()

	common.LogInfo("Starting %s %s (data dir %s)", common.AppName, buildInfo.Version, dataDir)

	a, err := newApp(dataDir, cfg)
	if err != nil {
		common.LogError("Startup failed: %v", err)
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Adapters subscribe before Run so they see the initial state
	var window *tui.Window
	if windowAvailable {
		window = tui.NewWindow(a.ctrl)
	}
	var tray *ui.TrayIndicator
	if !noTrayFlag {
		opts := ui.TrayOptions{WindowAvailable: window != nil}
		if a.notifier != nil {
			opts.Notifier = a.notifier
		}
		tray = ui.NewTrayIndicator(a.ctrl, opts)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.ctrl.Run(ctx)
	}()
	<-a.ctrl.Ready()

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			common.LogWarn("Failed to watch state file: %v", err)
		}
	}

	switch {
	case tray != nil:
		if window != nil {
			go func() {
				if err := window.Run(ctx, showWindow); err != nil {
					common.LogError("Window failed: %v", err)
				}
			}()
		}
		// systray owns the main goroutine until the controller exits
		tray.Run()
	case showWindow:
		// Without a tray the window cannot be reopened, so hiding it exits
		if err := window.Show(); err != nil {
			common.LogError("Window failed: %v", err)
		}
	default:
		common.LogInfo("Running without tray or window, press Ctrl+C to stop")
		select {
		case <-ctx.Done():
		case <-a.ctrl.Done():
		}
	}

	exitCtx, cancel := context.WithTimeout(context.Background(), cfg.StopTimeout+common.KillTimeout+time.Second)
	defer cancel()
	if err := a.ctrl.RequestExit(exitCtx); err != nil {
		common.LogWarn("Shutdown did not complete: %v", err)
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	common.LogInfo("%s stopped", common.AppName)
	return nil
}

// newApp wires the store, the supervisor and the controller.
func newApp(dataDir string, cfg *config.Config) (*app, error) {
	a := &app{dataDir: dataDir, cfg: cfg}

	inner, err := storage.Open(cfg.StoreBackend, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	a.store = inner
	common.LogInfo("State store: %s", inner.Path())

	if cfg.SecureSecrets && len(cfg.SecretKeys) > 0 {
		secrets, err := keyring.New(common.AppID, dataDir)
		if err != nil {
			common.LogWarn("Secret storage unavailable, secrets stay in the state store: %v", err)
		} else {
			a.store = storage.NewSealedStore(inner, secrets, cfg.SecretKeys)
		}
	}

	runDir := common.RunDir(dataDir)
	if err := common.EnsureDir(runDir); err != nil {
		a.store.Close()
		return nil, &common.IOError{Op: "create run directory", Path: runDir, Err: err}
	}
	removeStaleRunFiles(runDir)

	a.sup = supervisor.New(supervisor.Options{
		Command:     cfg.ClientCommand,
		RunDir:      runDir,
		StopTimeout: cfg.StopTimeout,
		KillTimeout: common.KillTimeout,
	})
	if path, err := a.sup.CheckCommand(); err != nil {
		common.LogWarn("Client command %v is not available: %v", cfg.ClientCommand, err)
	} else {
		common.LogInfo("Using client %s", path)
	}

	a.ctrl = controller.New(controller.Options{
		Store:        a.store,
		Runner:       a.sup,
		AutoLauncher: autolaunch.NewXDG(),
	})

	if yamlStore, ok := inner.(*storage.YAMLStore); ok && cfg.WatchStateFile {
		w, err := storage.NewWatcher(yamlStore, common.WatchDebounce, a.reloadState)
		if err != nil {
			common.LogWarn("State file watcher unavailable: %v", err)
		} else {
			a.watcher = w
		}
	}

	if cfg.ShowNotifications {
		a.notifier = ui.NewDesktopNotifier()
	}
	return a, nil
}

// reloadState asks the controller to re-read the externally edited state
// file. Unreadable edits are reported by the controller and ignored.
func (a *app) reloadState() {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if err := a.ctrl.ReloadFromStore(ctx); err != nil && !errors.Is(err, common.ErrShuttingDown) {
		common.LogDebug("State reload skipped: %v", err)
	}
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
	if err := a.store.Close(); err != nil {
		common.LogWarn("Failed to close state store: %v", err)
	}
}

// removeStaleRunFiles deletes client files left by an instance that did
// not shut down cleanly. They hold credentials.
func removeStaleRunFiles(runDir string) {
	matches, _ := filepath.Glob(filepath.Join(runDir, "*-"+common.ClientConfigName))
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			common.LogInfo("Removed stale client file %s", m)
		}
	}
}
