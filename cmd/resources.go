package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecoord/app"
	"github.com/kilianp07/dronecoord/core/inventory"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/roster"
)

func pilotsCmd(opts *options) *cobra.Command {
	var (
		f         roster.Filter
		available bool
		assigned  bool
	)
	cmd := &cobra.Command{
		Use:   "pilots",
		Short: "List pilots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts, func(svc *app.Service) error {
				ctx := ctxOf(cmd)
				var (
					pilots []model.Pilot
					err    error
				)
				switch {
				case available:
					pilots, err = svc.Roster.Available(ctx)
				case assigned:
					pilots, err = svc.Roster.CurrentAssignments(ctx)
				default:
					pilots, err = svc.Roster.Query(ctx, f)
				}
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd, pilots)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Name", "Skills", "Certifications", "Location", "Rate", "Status", "Assignment"})
				for _, p := range pilots {
					tw.AppendRow(table.Row{p.ID, p.Name, strings.Join(p.Skills, ", "), strings.Join(p.Certifications, ", "),
						p.Location, p.DailyRate, p.Status, p.CurrentAssignment})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&f.Skills, "skill", nil, "skill filter (any of)")
	cmd.Flags().StringSliceVar(&f.Certifications, "cert", nil, "certification filter (any of)")
	cmd.Flags().StringVar(&f.Location, "location", "", "location filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().BoolVar(&available, "available", false, "only pilots with status Available")
	cmd.Flags().BoolVar(&assigned, "assigned", false, "only pilots holding a mission")
	cmd.AddCommand(pilotCostCmd(opts))
	return cmd
}

func pilotCostCmd(opts *options) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "cost PILOT_ID",
		Short: "Price a pilot over an inclusive date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts, func(svc *app.Service) error {
				cost, err := svc.Roster.CalculateCost(ctxOf(cmd), args[0], start, end)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd, map[string]any{"pilot_id": args[0], "start_date": start, "end_date": end, "cost": cost})
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s..%s: %.2f\n", args[0], start, end, cost)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func dronesCmd(opts *options) *cobra.Command {
	var (
		f              inventory.Filter
		available      bool
		deployed       bool
		maintenanceDue bool
	)
	cmd := &cobra.Command{
		Use:   "drones",
		Short: "List drones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts, func(svc *app.Service) error {
				ctx := ctxOf(cmd)
				var (
					drones []model.Drone
					err    error
				)
				switch {
				case available && f.WeatherForecast != "":
					drones, err = svc.Inventory.ByWeather(ctx, f.WeatherForecast)
				case available:
					drones, err = svc.Inventory.Available(ctx)
				case deployed:
					drones, err = svc.Inventory.Deployed(ctx)
				case maintenanceDue:
					drones, err = svc.Inventory.MaintenanceDue(ctx)
				default:
					drones, err = svc.Inventory.Query(ctx, f)
				}
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd, drones)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Model", "Capabilities", "Location", "Weather", "Status", "Assignment", "Maintenance"})
				for _, d := range drones {
					tw.AppendRow(table.Row{d.ID, d.Model, strings.Join(d.Capabilities, ", "), d.Location,
						d.WeatherResistance, d.Status, d.CurrentAssignment, d.MaintenanceDue})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&f.Capabilities, "capability", nil, "capability filter (any of)")
	cmd.Flags().StringVar(&f.Location, "location", "", "location filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.WeatherForecast, "weather", "", "only drones able to fly in this forecast")
	cmd.Flags().BoolVar(&available, "available", false, "only drones with status Available")
	cmd.Flags().BoolVar(&deployed, "deployed", false, "only drones holding a mission")
	cmd.Flags().BoolVar(&maintenanceDue, "maintenance-due", false, "only drones whose maintenance date is reached")
	return cmd
}
