package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/formats/columnar"
)

func newInspectCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the rows of a Parquet, ORC or Avro file",
		Long: `inspect reads FILE through the configured filesystem and prints it as
tab-separated text. The format comes from the file extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := filesystem.New(cmd.Context(), a.cfg.Filesystem, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := fs.Close(); cerr != nil {
					a.logger.Warn("failed to close filesystem", zap.Error(cerr))
				}
			}()

			t, err := columnar.ReadFile(cmd.Context(), fs, args[0])
			if err != nil {
				return err
			}
			total := len(t.Rows)
			if limit > 0 && total > limit {
				t.Rows = t.Rows[:limit]
			}

			w := cmd.OutOrStdout()
			if _, err := io.WriteString(w, t.String()); err != nil {
				return err
			}
			cmd.PrintErrf("%d of %d rows\n", len(t.Rows), total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to print (0 for all)")
	return cmd
}
