package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecoord/app"
	"github.com/kilianp07/dronecoord/core/assignment"
)

type missionRow struct {
	ID       string           `json:"project_id"`
	Client   string           `json:"client"`
	Location string           `json:"location"`
	Skills   []string         `json:"required_skills"`
	Start    string           `json:"start_date"`
	End      string           `json:"end_date"`
	Budget   float64          `json:"budget"`
	Weather  string           `json:"weather_forecast"`
	State    assignment.State `json:"assignment_state"`
}

func missionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List missions with their assignment state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts, func(svc *app.Service) error {
				ctx := ctxOf(cmd)
				ms, err := svc.Assignments.Missions(ctx)
				if err != nil {
					return err
				}
				rows := make([]missionRow, 0, len(ms))
				for _, m := range ms {
					st, err := svc.Assignments.State(ctx, m.ID)
					if err != nil {
						return err
					}
					rows = append(rows, missionRow{
						ID: m.ID, Client: m.Client, Location: m.Location, Skills: m.RequiredSkills,
						Start: m.StartDate, End: m.EndDate, Budget: m.Budget, Weather: m.WeatherForecast, State: st,
					})
				}
				if opts.json {
					return printJSON(cmd, rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Client", "Location", "Skills", "Start", "End", "Budget", "Weather", "State"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.ID, r.Client, r.Location, strings.Join(r.Skills, ", "), r.Start, r.End, r.Budget, r.Weather, r.State})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.AddCommand(matchCmd(opts))
	return cmd
}

func matchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "match MISSION_ID",
		Short: "Show the pilot and drone auto-matching would pick, without committing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts, func(svc *app.Service) error {
				ctx := ctxOf(cmd)
				p, pok, err := svc.Assignments.MatchPilot(ctx, args[0])
				if err != nil {
					return err
				}
				d, dok, err := svc.Assignments.MatchDrone(ctx, args[0])
				if err != nil {
					return err
				}
				res := assignment.Result{MissionID: args[0]}
				if pok {
					res.PilotID = p.ID
				}
				if dok {
					res.DroneID = d.ID
				}
				if opts.json {
					return printJSON(cmd, res)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "mission %s: pilot %s, drone %s\n", res.MissionID, orNone(res.PilotID), orNone(res.DroneID))
				return err
			})
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
