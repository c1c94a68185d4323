package main

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/couchers-org/couchers-backend/internal/apps/communities"
	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/spf13/cobra"
)

func parseID(s, what string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint(id), nil
}

func (c *cli) communityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "community",
		Short: "Create and maintain communities",
	}

	var (
		creator     string
		description string
		parent      uint
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an official community with its main page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := services.NewUserService(c.db).GetByUsername(creator)
			if err != nil {
				return fmt.Errorf("creator %q: %w", creator, err)
			}
			var parentNodeID *uint
			if parent != 0 {
				parentNodeID = &parent
			}

			cluster, err := c.communities().CreateCommunity(user.ID, args[0], description, parentNodeID)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(out(cmd), cluster)
			}
			fmt.Fprintf(out(cmd), "Created community %s (node %d, slug %s)\n", cluster.Name, cluster.ParentNodeID, cluster.Slug)
			return nil
		},
	}
	create.Flags().StringVar(&creator, "creator", "", "username of the founding admin")
	create.Flags().StringVar(&description, "description", "", "community description")
	create.Flags().UintVar(&parent, "parent-node", 0, "id of the parent node")
	_ = create.MarkFlagRequired("creator")

	var override bool
	setDescription := &cobra.Command{
		Use:   "set-description <node_id> <description>",
		Short: "Replace a community description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := parseID(args[0], "node id")
			if err != nil {
				return err
			}

			cluster, err := c.communities().UpdateDescription(nodeID, args[1], override)
			if errors.Is(err, communities.ErrDescriptionTooLong) {
				return fmt.Errorf("the description length is %d, the limit is %d characters (use --override): %w",
					utf8.RuneCountInString(args[1]), communities.MaxDescriptionLength, err)
			}
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(out(cmd), cluster)
			}
			fmt.Fprintf(out(cmd), "The %s description has been updated to:\n%s\n", cluster.Name, cluster.Description)
			return nil
		},
	}
	setDescription.Flags().BoolVar(&override, "override", false, "allow descriptions over the length limit")

	incomplete := &cobra.Command{
		Use:   "incomplete",
		Short: "List communities missing discussions, content or a non-man admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.communities().IncompleteCommunities()
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(out(cmd), rows)
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					strconv.FormatUint(uint64(r.ID), 10),
					r.Name,
					r.URL,
					strconv.FormatBool(r.HasDiscussions),
					strconv.FormatBool(r.HasDescriptionLength),
					strconv.FormatBool(r.HasMainPageLength),
					strconv.FormatBool(r.HasNonManAdmin),
				})
			}
			return writeTable(out(cmd),
				[]string{"ID", "NAME", "URL", "DISCUSSIONS", "DESCRIPTION", "MAIN PAGE", "NON-MAN ADMIN"},
				table)
		},
	}

	cmd.AddCommand(create, setDescription, incomplete)
	return cmd
}

func (c *cli) discussionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discussion",
		Short: "Moderate community discussions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <discussion_id>",
		Short: "Delete a discussion with its thread, comments and replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "discussion id")
			if err != nil {
				return err
			}
			if err := c.communities().DeleteDiscussion(id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted discussion %d\n", id)
			return nil
		},
	})
	return cmd
}

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage community admins",
	}

	add := &cobra.Command{
		Use:   "add <node_id> <username>",
		Short: "Make a user an admin of a community",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := parseID(args[0], "node id")
			if err != nil {
				return err
			}
			cluster, err := c.communities().AddAdmin(nodeID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s is now an admin of %s\n", args[1], cluster.Name)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <node_id> <username>",
		Short: "Demote a community admin to member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := parseID(args[0], "node id")
			if err != nil {
				return err
			}
			cluster, err := c.communities().RemoveAdmin(nodeID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s has been removed as an admin from %s\n", args[1], cluster.Name)
			return nil
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}
