package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-platform-client/internal/config"
	"github.com/jrsteele09/go-platform-client/session"
	"github.com/jrsteele09/go-platform-client/storage/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// annotationNoSession marks commands that run without opening the state store.
const annotationNoSession = "no-session"

// app is what the commands share for one invocation.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	store   *sqlite.Store
	session *session.Session
}

// NewRootCommand builds the platformctl command tree.
func NewRootCommand() *cobra.Command {
	rootCmd, _ := newRootCommand()
	return rootCmd
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "platformctl",
		Short: "Multi-system platform session client",
		Long: `platformctl logs in to the platform, moves between the systems you have
access to, and answers what the current context lets you see and do.

Session state (tokens, selected system, permissions and menus) is kept in a
local SQLite file so it survives between invocations.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newSystemsCmd(a),
		newSwitchCmd(a),
		newExitCmd(a),
		newSyncCmd(a),
		newContextCmd(a),
		newMenusCmd(a),
		newCanCmd(a),
		newVersionCmd(a),
		newFakeServerCmd(a),
	)
	return rootCmd, a
}

// ExecuteContext runs the CLI with ctx, which main cancels on interrupt. The
// state store is closed even when the command fails.
func ExecuteContext(ctx context.Context) error {
	rootCmd, a := newRootCommand()
	defer a.close()
	return rootCmd.ExecuteContext(ctx)
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cmd.ErrOrStderr(), cfg.GetLogLevel())

	if cmd.Annotations[annotationNoSession] == "true" {
		return nil
	}

	store, err := sqlite.Open(cfg.GetStatePath())
	if err != nil {
		return errors.Wrap(err, "open state store")
	}
	a.store = store
	a.session = session.New(cfg, store, a.log)
	if err := a.session.Start(cmd.Context()); err != nil {
		return errors.Wrap(err, "start session")
	}
	return nil
}

func (a *app) close() error {
	if a.session != nil {
		_ = a.session.Close()
		a.session = nil
	}
	if a.store != nil {
		err := a.store.Close()
		a.store = nil
		return err
	}
	return nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	noColor := true
	if f, ok := w.(*os.File); ok && f == os.Stderr {
		noColor = false
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: noColor}).
		Level(lvl).
		With().Timestamp().Logger()
}
