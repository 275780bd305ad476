// Command bookctl runs operator tasks against the BookCore database:
// schema migrations, legacy catalog imports and admin bootstrap.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bookcore/internal/config"
	"github.com/iliyamo/bookcore/internal/database"
	"github.com/iliyamo/bookcore/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := &cobra.Command{
		Use:           "bookctl",
		Short:         "BookCore operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), seedCmd(), adminCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openDB connects with the DB_* settings only.
func openDB() (*sql.DB, error) {
	cfg := config.LoadDB()
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

func cliLogger() logging.Logger {
	return logging.New(os.Stderr, os.Getenv("APP_ENV"))
}
