package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jrsteele09/go-platform-client/platformfake"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newFakeServerCmd(a *app) *cobra.Command {
	var (
		addr          string
		secret        string
		platformTTL   time.Duration
		systemTTL     time.Duration
		loginContext  bool
		platformField bool
		flatSystems   bool
		noColour      bool
		origins       []string
	)
	return withoutSession(&cobra.Command{
		Use:   "fake-server",
		Short: "Run an in-memory platform API for local development",
		Long: fmt.Sprintf(`Run an in-memory implementation of the platform API with one demo account:

  email:    %s
  password: %s

Point the client at it with PLATFORM_API_URL=http://localhost:8000.`, platformfake.DemoEmail, platformfake.DemoPassword),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := []platformfake.Option{
				platformfake.WithLogger(a.log),
				platformfake.WithTokenTTL(platformTTL, systemTTL),
			}
			if secret != "" {
				options = append(options, platformfake.WithSecret([]byte(secret)))
			}
			if loginContext {
				options = append(options, platformfake.WithLoginContext())
			}
			if platformField {
				options = append(options, platformfake.WithPlatformTokenField())
			}
			if len(origins) > 0 {
				options = append(options, platformfake.WithAllowedOrigins(origins...))
			}
			if flatSystems {
				options = append(options, platformfake.WithFlatSystems())
			}
			fake, err := platformfake.New(options...)
			if err != nil {
				return err
			}

			displayAppname(cmd, a.cfg.GetAppName())
			out := cmd.OutOrStdout()
			for _, route := range fake.Routes() {
				fmt.Fprintln(out, "  "+colourRoute(route, !noColour))
			}

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("net.Listen %w", err)
			}
			server := &http.Server{Handler: fake, ReadHeaderTimeout: 10 * time.Second}
			return run(cmd.Context(), server, listener, a)
		},
	}, func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
		cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret for issued tokens")
		cmd.Flags().DurationVar(&platformTTL, "platform-ttl", time.Hour, "Platform token lifetime")
		cmd.Flags().DurationVar(&systemTTL, "system-ttl", 30*time.Minute, "System token lifetime")
		cmd.Flags().BoolVar(&loginContext, "login-context", false, "Include platform permissions and menus in the login response")
		cmd.Flags().BoolVar(&platformField, "platform-token-field", false, "Name the token platform_token instead of access_token")
		cmd.Flags().BoolVar(&flatSystems, "flat-systems", false, "Return available systems without roles")
		cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS origins allowed to call the API (\"*\" for any)")
		cmd.Flags().BoolVar(&noColour, "no-colour", false, "Disable coloured route output")
	})
}

// run serves until ctx is cancelled, then shuts the server down.
func run(ctx context.Context, server *http.Server, listener net.Listener, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(server, listener, a)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server, listener net.Listener, a *app) error {
	a.log.Info().Str("addr", listener.Addr().String()).Msg("fake platform listening")
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.Serve %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
