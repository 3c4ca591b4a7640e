package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecoord/app"
	"github.com/kilianp07/dronecoord/core/conflict"
	"github.com/kilianp07/dronecoord/pkg/export"
)

func conflictsCmd(opts *options) *cobra.Command {
	var format, mission string
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Scan committed assignments for conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json {
				format = "json"
			}
			switch format {
			case "table", "summary", "json", "csv":
			default:
				return fmt.Errorf("unknown format %q (table, summary, json, csv)", format)
			}
			return withService(opts, func(svc *app.Service) error {
				report, err := svc.Conflicts.DetectAll(ctxOf(cmd))
				if err != nil {
					return err
				}
				if mission != "" {
					report = report.Restrict(mission)
				}
				out := cmd.OutOrStdout()
				switch format {
				case "summary":
					_, err = fmt.Fprintln(out, report.Summary())
					return err
				case "json":
					return export.WriteJSON(out, report)
				case "csv":
					return export.WriteCSV(out, report)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"Section", "Severity", "Entity", "Mission", "Details"})
				for _, s := range conflict.Sections {
					for _, c := range report.Section(s) {
						tw.AppendRow(table.Row{s.Title(), c.Severity, c.EntityType + " " + c.EntityID, c.MissionID, c.String()})
					}
				}
				tw.AppendFooter(table.Row{"", "", "", "Total", report.Len()})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, summary, json or csv")
	cmd.Flags().StringVar(&mission, "mission", "", "only conflicts touching this mission")
	return cmd
}
