package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/ingestor/internal/pipeline"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
)

func newPlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would read and write, without connecting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.loadGroup()
			if err != nil {
				return err
			}
			// Paths only; the gateway is never touched.
			steps, err := pipeline.Plan(pipeline.Deps{
				Config: a.cfg,
				Output: filesystem.NewLocal(""),
				Logger: a.logger,
			}, g)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), g.ID, steps)
		},
	}
	cmd.Flags().StringVarP(&a.group, "group", "g", "", "Metadata group to plan")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func printPlan(w io.Writer, group string, steps []pipeline.Step) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "group %s (%d datasets)\n", group, len(steps))
	for _, st := range steps {
		fmt.Fprintf(&sb, "\n%s [%s]\n", st.Dataset, st.Kind)
		fmt.Fprintf(&sb, "  input:  %s\n", st.Input)
		fmt.Fprintf(&sb, "  output: %s (%s, %s)\n", st.Output, st.Format, st.Compression)
		sb.WriteString("  schema:\n")
		for _, f := range st.Schema.Fields {
			fmt.Fprintf(&sb, "    %-24s %s\n", f.Name, f.Kind)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
