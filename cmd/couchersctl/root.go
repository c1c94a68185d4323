package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/couchers-org/couchers-backend/internal/apps/communities"
	"github.com/couchers-org/couchers-backend/internal/config"
	"github.com/couchers-org/couchers-backend/internal/database"
	"github.com/couchers-org/couchers-backend/internal/logging"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// cli holds state shared by all subcommands.
type cli struct {
	cfg     *config.Config
	db      *gorm.DB
	ownsDB  bool
	jsonOut bool
}

// newRootCmd builds the command tree. When db is nil the database is opened
// from the environment before each command runs.
func newRootCmd(db *gorm.DB) *cobra.Command {
	c := &cli{cfg: config.Load(), db: db}

	root := &cobra.Command{
		Use:           "couchersctl",
		Short:         "Administer Couchers communities and inspect user statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(cmd.ErrOrStderr(), c.cfg.LogLevel)
			return c.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print machine readable JSON")

	root.AddCommand(
		c.communityCmd(),
		c.discussionCmd(),
		c.adminCmd(),
		c.usersCmd(),
		c.statsCmd(),
		c.tablesCmd(),
		c.tokenCmd(),
	)
	return root
}

func (c *cli) open() error {
	if c.db != nil {
		return nil
	}

	db, err := database.Open(c.cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if err := database.MigrateModels(db, communities.New().Models()); err != nil {
		return fmt.Errorf("failed to migrate communities: %w", err)
	}
	c.db = db
	c.ownsDB = true
	slog.Debug("database opened", "driver", c.cfg.DBDriver)
	return nil
}

func (c *cli) close() error {
	if !c.ownsDB || c.db == nil {
		return nil
	}
	err := database.Close(c.db)
	c.db = nil
	c.ownsDB = false
	return err
}

func (c *cli) communities() *communities.CommunityService {
	return communities.NewCommunityService(c.db, c.cfg.AppBaseURL)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
