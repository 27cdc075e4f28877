package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/ingestor/pkg/ddl"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/formats/columnar"
)

func newDDLCmd(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Generate Hive external table DDL for a metadata group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.loadGroup()
			if err != nil {
				return err
			}

			var override columnar.Format
			if format != "" {
				if override, err = columnar.ParseFormat(format); err != nil {
					return err
				}
			}
			tables, err := ddl.ForGroup(g, override)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return ddl.Write(cmd.OutOrStdout(), tables)
			}
			f, err := os.Create(out)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to create DDL file").WithDetail("path", out)
			}
			if err := ddl.Write(f, tables); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&a.group, "group", "g", "", "Metadata group")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Storage format for every table (parquet, orc, avro)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write DDL to this file instead of stdout")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}
