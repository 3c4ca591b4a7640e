package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecoord/app"
	"github.com/kilianp07/dronecoord/core/assignment/logging"
)

func auditCmd(opts *options) *cobra.Command {
	var (
		q          logging.LogQuery
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the assignment audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.Start, err = parseTime(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if q.End, err = parseTime(end); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			return withService(opts, func(svc *app.Service) error {
				recs, err := svc.AuditLog().Query(ctxOf(cmd), q)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd, recs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Time", "Action", "Mission", "Pilot", "Drone", "Outcome", "Reason", "Error"})
				for _, r := range recs {
					tw.AppendRow(table.Row{r.Timestamp.Format(time.RFC3339), r.Action, r.MissionID, r.PilotID, r.DroneID, r.Outcome, r.Reason, r.Error})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.MissionID, "mission", "", "mission id")
	cmd.Flags().StringVar(&q.EntityID, "entity", "", "pilot or drone id")
	cmd.Flags().StringVar(&q.Action, "action", "", "action, e.g. assign_pilot or rollback_pilot")
	cmd.Flags().StringVar(&start, "start", "", "earliest time (RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "latest time (RFC3339)")
	return cmd
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
