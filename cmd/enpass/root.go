package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/enpass/internal/config"
	"github.com/TheMichaelB/enpass/internal/events"
	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/platform"
	"github.com/TheMichaelB/enpass/internal/vault"
)

// errNoCommand is returned when the root command runs without a subcommand.
var errNoCommand = errors.New("no command given")

// app carries the state shared by all commands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Flags
	configPath string
	vaultPath  string
	logLevel   string
	jsonOutput bool

	cfg       *config.Config
	logger    *events.Logger
	clipboard platform.Clipboard

	// Result of disabling core dumps at startup, logged once the logger exists.
	coreDumpErr error
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		clipboard: platform.NewClipboard(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "enpass",
		Short: "Read items from an Enpass vault",
		Long: `enpass opens an Enpass vault read-only and prints item listings,
credentials and decrypted fields.

The vault may be given as vault.json, vault.enpassdb or a
vault.enpassdbsync sync container.`,
		Example: `  enpass --vault ~/Documents/Enpass/Vaults/primary/vault.json list
  enpass --vault vault.enpassdb password 42
  enpass --vault vault.enpassdbsync dump 42`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(a.stderr)
			_ = cmd.Usage()
			return errNoCommand
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.vaultPath, "vault", "",
		"Path to vault.json, .enpassdb or .enpassdbsync (required)")
	flags.StringVar(&a.configPath, "config", "",
		"Config file (default: ./.enpass, user config dir)")
	flags.StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	flags.BoolVar(&a.jsonOutput, "json", false,
		"Print results as JSON")

	rootCmd.AddCommand(newListCmd(a), newPasswordCmd(a), newDumpCmd(a))
	return rootCmd
}

// setup loads configuration and creates the logger. The bare root command
// needs neither and must not touch the vault.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd == cmd.Root() {
		return nil
	}

	loader := config.NewLoader(a.configPath)
	flags := cmd.Flags()
	bindings := map[string]string{
		"vault.path":  "vault",
		"log.level":   "log-level",
		"output.json": "json",
	}
	for key, name := range bindings {
		if err := loader.BindFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrInvalidConfig, err)
	}
	a.cfg = cfg

	if !cfg.Output.Color {
		color.NoColor = true
	}

	logger, err := events.NewLoggerWithOutput(&cfg.Log, a.stderr)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger.WithField("component", "cli")

	if a.coreDumpErr != nil {
		a.logger.WithError(a.coreDumpErr).Debug("Core dumps could not be disabled")
	}

	if used := loader.ConfigFileUsed(); used != "" {
		a.logger.WithField("file", used).Debug("Loaded config file")
	}
	return nil
}

// openSession locates the vault, asks for the passphrase and unlocks it.
func (a *app) openSession(ctx context.Context) (*vault.Session, error) {
	path := a.cfg.Vault.Path
	if path == "" {
		return nil, fmt.Errorf("%w: no vault given, use --vault", models.ErrInvalidConfig)
	}

	handle, err := vault.Locate(path, a.logger)
	if err != nil {
		return nil, err
	}

	passphrase, err := a.readPassphrase()
	if err != nil {
		return nil, err
	}
	defer wipe(passphrase)

	stop := a.startSpinner("Unlocking vault...")
	session, err := vault.NewUnlocker(a.cfg.Store, a.logger).Unlock(ctx, handle, passphrase)
	stop()

	if err != nil {
		return nil, err
	}
	return session, nil
}

// withItems runs fn against an unlocked vault and closes it afterwards.
func (a *app) withItems(ctx context.Context, fn func(*vault.Items) error) error {
	session, err := a.openSession(ctx)
	if err != nil {
		return err
	}

	err = fn(session.Items())
	if closeErr := session.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, a *app) int {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNoCommand) {
			printFailure(a.stderr, err)
		}
		return 1
	}
	return 0
}
