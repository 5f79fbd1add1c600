package main

import (
	"fmt"
	"strconv"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/thinkscotty/blogzin/internal/models"
)

const (
	categoryFlag = "category"
	limitFlag    = "limit"
)

var postsListFlags = map[string]cobraflags.Flag{
	categoryFlag: &cobraflags.StringFlag{
		Name:  categoryFlag,
		Value: "",
		Usage: "Only list posts in this category",
	},
	limitFlag: &cobraflags.StringFlag{
		Name:  limitFlag,
		Value: "20",
		Usage: "Maximum number of posts to show (0 for all)",
	},
}

func newPostsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect published posts",
	}
	cmd.AddCommand(newPostsListCommand(a), newPostsShowCommand(a))
	return cmd
}

func newPostsListCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, err := strconv.Atoi(postsListFlags[limitFlag].GetString())
			if err != nil || limit < 0 {
				return fmt.Errorf("invalid --%s value %q", limitFlag, postsListFlags[limitFlag].GetString())
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			var posts []models.Post
			if category := postsListFlags[categoryFlag].GetString(); category != "" {
				posts, err = store.ListPostsByCategory(ctx, category)
			} else {
				posts, err = store.ListPosts(ctx)
			}
			if err != nil {
				return err
			}
			if limit > 0 && len(posts) > limit {
				posts = posts[:limit]
			}

			rows := make([][]string, 0, len(posts))
			for _, p := range posts {
				rows = append(rows, []string{
					p.ID,
					p.CreatedAt.Local().Format("2006-01-02 15:04"),
					p.CategoryName(),
					truncate(p.Title, 60),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{{Title: "ID"}, {Title: "Created"}, {Title: "Category"}, {Title: "Title"}},
				rows,
			))
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, postsListFlags)
	return cmd
}

func newPostsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a single post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			post, err := store.GetPost(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", post.Title)
			fmt.Fprintf(out, "%s · %s · %s\n\n", post.CreatedAt.Local().Format("2006-01-02 15:04"), post.CategoryName(), post.Source)
			fmt.Fprintf(out, "%s\n\n", post.Content)
			fmt.Fprintf(out, "Original: %s\n", post.OriginalText)
			return nil
		},
	}
}

func newCategoriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show post counts per category and generation totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stats.Categories))
			for _, c := range stats.Categories {
				rows = append(rows, []string{c.Category, strconv.Itoa(c.Posts)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{{Title: "Category"}, {Title: "Posts", Numeric: true}}, rows))
			fmt.Fprintf(out, "%d posts · %d generations (%d created, %d duplicates, %d failed) · %d tokens\n",
				stats.TotalPosts, stats.GenerationAttempts, stats.GenerationsCreated,
				stats.GenerationDuplicates, stats.GenerationsFailed, stats.TotalTokensUsed)
			return nil
		},
	}
}
