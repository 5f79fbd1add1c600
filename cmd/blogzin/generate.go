package main

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/thinkscotty/blogzin/internal/apperr"
)

const sourceFlag = "source"

var generateFlags = map[string]cobraflags.Flag{
	sourceFlag: &cobraflags.StringFlag{
		Name:  sourceFlag,
		Value: "",
		Usage: "Fact source id (defaults to the first configured source)",
	},
}

func newGenerateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fetch one fact and publish a post about it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			pipe, _, err := newPipeline(a.cfg, store)
			if err != nil {
				return err
			}

			post, err := pipe.Generate(ctx, generateFlags[sourceFlag].GetString())
			if err != nil {
				return fmt.Errorf("%s: %w", apperr.Message(err), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created post %s\n\n", post.ID)
			fmt.Fprintf(out, "%s\n[%s]\n\n%s\n", post.Title, post.CategoryName(), post.Content)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, generateFlags)
	return cmd
}
