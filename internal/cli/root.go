// Package cli wires configuration, logging and the pass invoker into the
// cobra command tree. With no subcommand it starts the interactive browser.
package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"pass-tui/internal/clipboard"
	"pass-tui/internal/config"
	"pass-tui/internal/dispatch"
	"pass-tui/internal/logging"
	"pass-tui/internal/passcli"
	"pass-tui/internal/search"
	"pass-tui/internal/session"
	"pass-tui/internal/storefs"
	"pass-tui/internal/storetree"
	"pass-tui/internal/tui"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const scanTimeout = 30 * time.Second

type App struct {
	StoreDir   string
	ConfigPath string
	DebugLog   string
	LogLevel   string

	// Root-only flags.
	ClipTime time.Duration
	Editor   string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "pass-tui",
		Short:        "Browse and manage a pass password store from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive browser
  pass-tui

  # Use another store and clear copied secrets after 20 seconds
  pass-tui --store ~/work-store --clip-time 20s

  # Scriptable commands
  pass-tui ls email
  pass-tui find gh
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(app)
		},
	}

	// Accept the config file's spelling too (--clip_time).
	cmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	cmd.PersistentFlags().StringVar(&app.StoreDir, "store", "", "Password store directory (default: $PASSWORD_STORE_DIR, then ~/.password-store)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr(config.EnvConfig, ""), "Config file (default: <user config dir>/pass-tui/config.toml)")
	cmd.PersistentFlags().StringVar(&app.DebugLog, "debug-log", envOr(logging.EnvDebugLog, ""), "Write a debug log to this file")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "debug", "Debug log level (debug|info|warn|error)")

	cmd.Flags().DurationVar(&app.ClipTime, "clip-time", 0, "Clear copied secrets after this long (default: $PASSWORD_STORE_CLIP_TIME, then 45s)")
	cmd.Flags().StringVar(&app.Editor, "editor", "", "Editor for pass edit (default: $EDITOR)")

	cmd.AddCommand(newLsCmd(app))
	cmd.AddCommand(newFindCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func runTUI(app *App) error {
	if !isTerminal() {
		return errNotTerminal
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}
	log, err := app.logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("start", zap.String("store", cfg.StoreDir))

	pass := passcli.CLI{
		Bin:      cfg.PassBin,
		StoreDir: cfg.StoreDir,
		Editor:   cfg.Editor,
		Log:      log.Named("pass"),
	}
	disp := dispatch.New(pass, dispatch.Options{
		ReadTimeout: cfg.Session.ActionTimeout.Duration,
		Log:         log.Named("dispatch"),
	})

	return tui.Run(tui.Options{
		StoreDir:   cfg.StoreDir,
		Scan:       scanner(cfg, log),
		Dispatcher: disp,
		Clipboard:  clipboard.SystemSink{},
		Search:     search.New(searchOptions(cfg)),
		Session:    sessionOptions(cfg),
		ToolErr:    pass.Check(),
		Git:        true,
		Background: cfg.UI.Background,
		Log:        log,
	})
}

// loadConfig reads the config file and applies flags and the environment.
func (app *App) loadConfig() (config.Config, error) {
	path := app.ConfigPath
	if path == "" {
		p, err := config.Path(os.Getenv)
		if err != nil {
			return config.Config{}, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	return cfg.Resolve(config.Overrides{
		StoreDir: app.StoreDir,
		ClipTime: app.ClipTime,
		Editor:   app.Editor,
	}, os.Getenv)
}

func (app *App) logger() (*zap.Logger, error) {
	return logging.New(logging.Options{Path: app.DebugLog, Level: app.LogLevel})
}

// scan builds the tree once for the one-shot commands.
func (app *App) scan(cfg config.Config) (*storetree.Tree, error) {
	log, err := app.logger()
	if err != nil {
		return nil, err
	}
	defer func() { _ = log.Sync() }()
	return scanner(cfg, log)()
}

// scanner returns the store scan used at start and for every rescan.
func scanner(cfg config.Config, log *zap.Logger) func() (*storetree.Tree, error) {
	l := storefs.Lister{Ignore: cfg.Scan.Ignore, Log: log.Named("scan")}
	root := cfg.StoreDir
	return func() (*storetree.Tree, error) {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()
		return storetree.Build(ctx, l, root)
	}
}

func searchOptions(cfg config.Config) search.Options {
	return search.Options{
		GapPenalty:      cfg.Search.GapPenalty,
		PositionPenalty: cfg.Search.PositionPenalty,
		LengthPenalty:   cfg.Search.LengthPenalty,
		Limit:           cfg.Search.Limit,
	}
}

func sessionOptions(cfg config.Config) session.Options {
	opts := session.DefaultOptions()
	opts.ClipTTL = cfg.Clipboard.TTL.Duration
	opts.StatusTTL = cfg.Session.StatusTTL.Duration
	opts.QuitGrace = cfg.Session.QuitGrace.Duration
	opts.HistoryLimit = cfg.Session.HistoryLimit
	opts.DirsFirst = cfg.Session.DirsFirst
	opts.GenerateLength = cfg.Generate.Length
	opts.NoSymbols = cfg.Generate.NoSymbols
	opts.CopyGenerated = cfg.Generate.Copy
	opts.Multiline = cfg.Insert.Multiline
	return opts
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
