package commands

import (
	"database/sql"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/crowlee-bookings/internal/config"
	"github.com/iliyamo/crowlee-bookings/internal/database"
	"github.com/iliyamo/crowlee-bookings/internal/logger"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "adminctl",
		Short:         "Operator tooling for the bookings service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newCreateUserCommand(),
		newListUsersCommand(),
	)

	return rootCmd
}

// env bundles what every subcommand needs.
type env struct {
	cfg config.Config
	log *logrus.Logger
}

func loadEnv() (env, error) {
	cfg, err := config.Load()
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, log: logger.New(cfg.LogLevel, "text")}, nil
}

func (e env) openDB() (*sql.DB, error) {
	return database.Open(e.cfg.DSNParts())
}

func (e env) migrateDSN() string {
	user, pass, host, port, name := e.cfg.DSNParts()
	return database.DSN(user, pass, host, port, name, "multiStatements=true")
}
