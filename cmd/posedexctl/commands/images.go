package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/repository/imagestore"
)

func newImagesCmd(g *globals) *cobra.Command {
	var badgerDir string
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage the badger image store",
	}
	cmd.PersistentFlags().StringVar(&badgerDir, "badger-dir", "", "badger image store directory (required)")

	importCmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Copy every image under dir into the store, keyed by relative path",
		Long: `Import walks dir and stores each image under its slash-separated path
relative to dir, matching the identifiers in the corpus file.

Examples:
  posedexctl images import ./crawl --badger-dir ./data/images`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if badgerDir == "" {
				return errors.New("--badger-dir is required")
			}
			log := g.logger()
			store, err := imagestore.OpenBadger(badgerDir, false, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Import(cmd.Context(), args[0], log)
			if err != nil {
				return err
			}
			log.Debug("Import finished", zap.Int("images", n))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d images into %s\n", n, badgerDir)
			return nil
		},
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count stored images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if badgerDir == "" {
				return errors.New("--badger-dir is required")
			}
			store, err := imagestore.OpenBadger(badgerDir, true, g.logger())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Count()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.AddCommand(importCmd, countCmd)
	return cmd
}
