package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/thinkscotty/blogzin/internal/updater"
)

const releasesURLFlag = "releases-url"

var updateFlags = map[string]cobraflags.Flag{
	releasesURLFlag: &cobraflags.StringFlag{
		Name:  releasesURLFlag,
		Value: updater.DefaultReleasesURL,
		Usage: "GitHub latest-release API URL",
	},
}

func newUpdateCommand() *cobra.Command {
	var checkOnly bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace this binary with the latest release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			u := updater.New(updateFlags[releasesURLFlag].GetString())

			fmt.Fprintf(out, "Blogzin %s, checking for updates...\n", version)
			rel, err := u.Check(cmd.Context(), version)
			if err != nil {
				return fmt.Errorf("check for update: %w", err)
			}
			if rel == nil {
				fmt.Fprintln(out, "Already running the latest version.")
				return nil
			}

			fmt.Fprintf(out, "Update available: %s -> %s (%s, %s)\n",
				version, rel.TagName, rel.AssetName, humanize.Bytes(uint64(rel.AssetSize)))
			if checkOnly {
				return nil
			}

			target, err := updater.Executable()
			if err != nil {
				return err
			}
			n, err := u.Install(cmd.Context(), rel, target)
			if err != nil {
				return fmt.Errorf("install update: %w", err)
			}
			fmt.Fprintf(out, "Installed %s (%s). Restart any running `blogzin serve` to use it.\n",
				rel.TagName, humanize.Bytes(uint64(n)))
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, updateFlags)
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether a newer release exists")
	return cmd
}
