package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/agency-connect/internal/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server serving /connect/{provider}, /oauth/callback and the
integrations API.

With APP_ENV=production the server refuses to start when OAUTH_STATE_SECRET,
TOKEN_ENCRYPTION_KEY or JWT_SECRET is missing. Any other environment logs a
warning and continues with keys generated for this process.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer app.Close()

	logger.Info("agency-connect starting", "version", Version, "env", cfg.Env, "addr", app.Server.Addr())
	return app.Server.Start(ctx)
}
