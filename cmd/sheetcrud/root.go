package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/ideamans/go-sheetcrud/speech"
	"github.com/ideamans/go-sheetcrud/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""
)

type commandContext struct {
	configFlag *string
	viper      *viper.Viper

	configOnce sync.Once
	config     *appConfig
	configFile string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		viper:      viper.New(),
	}
}

func (c *commandContext) ensureConfig() (*appConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configFile, c.configErr = loadConfig(c.viper, path)
	})
	return c.config, c.configErr
}

// app is everything one command needs: the configured logger, a started
// session and optionally a synthesizer.
type app struct {
	cfg     *appConfig
	logger  *log.Logger
	session *sheetcrud.Session
	synth   speech.Synthesizer

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openApp loads config and opens the store. Outside the TUI it also starts
// the session; the TUI starts it itself and shows load failures inline.
func (c *commandContext) openApp(ctx context.Context, cmd *cobra.Command, tui bool) (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	variant, ok := sheetcrud.LookupVariant(cfg.Variant)
	if !ok {
		return nil, fmt.Errorf("unknown variant %q: use contact or speech", cfg.Variant)
	}

	logger, closeLog, err := setupLog(cfg.Log, cmd.ErrOrStderr(), tui)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	if variant == sheetcrud.SpeechVariant {
		synth, closeSynth, err := openSynthesizer(ctx, cfg.Speech, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.synth = synth
		a.closers = append(a.closers, closeSynth)
	}

	a.session = sheetcrud.NewSession(store, variant, sheetcrud.WithLogger(logger))
	if !tui {
		if err := a.session.Start(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "sheetcrud",
		Short:         "Browse and edit records kept in a spreadsheet, workbook or SQLite file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// パイプ先ではTUIを起動せず一覧を出す
			if !isTerminal(cmd.OutOrStdout()) {
				return printRecords(cmd, ctx, sheetcrud.Query{})
			}
			return runTUI(cmd, ctx)
		},
	}

	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "config file (default sheetcrud.yml in the user config dir)")
	flags.String("variant", "", "record set: contact or speech")
	flags.String("store", "", "store type: googlesheets, excel or sqlite")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "write logs to this file")
	flags.StringP("output", "o", "", "directory speech audio is written to")

	_ = ctx.viper.BindPFlag("variant", flags.Lookup("variant"))
	_ = ctx.viper.BindPFlag("store.type", flags.Lookup("store"))
	_ = ctx.viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = ctx.viper.BindPFlag("log.file", flags.Lookup("log-file"))
	_ = ctx.viper.BindPFlag("output_dir", flags.Lookup("output"))

	rootCmd.AddCommand(
		newTUICommand(ctx),
		newListCommand(ctx),
		newAddCommand(ctx),
		newEditCommand(ctx),
		newDeleteCommand(ctx),
		newSpeakCommand(ctx),
		newVoicesCommand(),
		newConfigCommand(ctx),
	)
	return rootCmd
}

func newTUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive record browser (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, ctx)
		},
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runTUI(cmd *cobra.Command, ctx *commandContext) error {
	a, err := ctx.openApp(cmd.Context(), cmd, true)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	cfg, err := ui.ConfigFromEnv(ui.Config{OutputDir: a.cfg.OutputDir, AltScreen: true})
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	if _, err := ui.NewProgram(cmd.Context(), cfg, a.session, a.synth, a.logger).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	if a.session.Dirty() {
		// 保存できなかった変更を終了前にもう一度書き出す
		if err := a.session.Flush(cmd.Context()); err != nil {
			return fmt.Errorf("unsaved changes: %w", err)
		}
	}
	return nil
}
