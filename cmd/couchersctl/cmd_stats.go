package main

import (
	"strconv"
	"strings"

	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/spf13/cobra"
)

func (c *cli) statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "User growth statistics",
	}

	var window int
	signups := &cobra.Command{
		Use:   "signups",
		Short: "Signups per day, averaged over a rolling window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := services.NewStatsService(c.db).SignupsPerDay(window)
			if err != nil {
				return err
			}
			return c.printSeries(cmd, "SIGNUPS/DAY", series)
		},
	}
	signups.Flags().IntVar(&window, "window", 7, "rolling window in days")

	var sample int
	growth := &cobra.Command{
		Use:   "growth",
		Short: "Cumulative user count sampled every few days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := services.NewStatsService(c.db).CumulativeUsers(sample)
			if err != nil {
				return err
			}
			return c.printSeries(cmd, "USERS", series)
		},
	}
	growth.Flags().IntVar(&sample, "sample", 1, "sampling interval in days")

	cmd.AddCommand(signups, growth)
	return cmd
}

func (c *cli) printSeries(cmd *cobra.Command, label string, series []services.SeriesPoint) error {
	if c.jsonOut {
		return writeJSON(out(cmd), series)
	}
	rows := make([][]string, len(series))
	for i, p := range series {
		rows[i] = []string{p.Date.Format("2006-01-02"), strconv.FormatFloat(p.Value, 'f', -1, 64)}
	}
	return writeTable(out(cmd), []string{"DATE", label}, rows)
}

func (c *cli) tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect the database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "columns <table>",
		Short: "List the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, err := services.NewStatsService(c.db).TableColumns(args[0])
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(out(cmd), columns)
			}
			_, err = out(cmd).Write([]byte(strings.Join(columns, "\n") + "\n"))
			return err
		},
	})
	return cmd
}
