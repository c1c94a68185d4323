package main

import (
	"fmt"

	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/spf13/cobra"
)

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect users",
	}

	var (
		as    string
		limit int
	)
	visible := &cobra.Command{
		Use:   "visible",
		Short: "List the users visible to a viewer, or to nobody in particular",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users := services.NewUserService(c.db)

			var (
				list  []userRow
				total int64
			)
			if as == "" {
				found, err := users.ListVisibleNoViewer(limit)
				if err != nil {
					return err
				}
				for _, u := range found {
					list = append(list, userRow{ID: u.ID.String(), Username: u.Username, Name: u.Name})
				}
				total = int64(len(found))
			} else {
				me, err := users.GetByUsername(as)
				if err != nil {
					return fmt.Errorf("viewer %q: %w", as, err)
				}
				found, n, err := users.ListVisible(viewer.New(me.ID), limit, 0)
				if err != nil {
					return err
				}
				for _, u := range found {
					list = append(list, userRow{ID: u.ID.String(), Username: u.Username, Name: u.Name})
				}
				total = n
			}

			if c.jsonOut {
				return writeJSON(out(cmd), map[string]interface{}{"users": list, "total": total})
			}
			rows := make([][]string, len(list))
			for i, u := range list {
				rows[i] = []string{u.ID, u.Username, u.Name}
			}
			if err := writeTable(out(cmd), []string{"ID", "USERNAME", "NAME"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%d visible\n", total)
			return nil
		},
	}
	visible.Flags().StringVar(&as, "viewer", "", "username to view as")
	visible.Flags().IntVar(&limit, "limit", 100, "maximum number of users to print")

	cmd.AddCommand(visible)
	return cmd
}

type userRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
