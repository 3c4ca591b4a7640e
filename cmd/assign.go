package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecoord/app"
	"github.com/kilianp07/dronecoord/core/assignment"
)

func assignCmd(opts *options) *cobra.Command {
	var pilotID, droneID string
	cmd := &cobra.Command{
		Use:   "assign MISSION_ID",
		Short: "Assign a pilot and a drone to a mission",
		Long:  "Assign a pilot and a drone to a mission. Resources not given with --pilot or --drone are auto-matched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts, func(svc *app.Service) error {
				res, err := svc.Assignments.CreateAssignment(ctxOf(cmd), args[0], pilotID, droneID)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, res)
			})
		},
	}
	cmd.Flags().StringVar(&pilotID, "pilot", "", "pilot id, auto-matched when empty")
	cmd.Flags().StringVar(&droneID, "drone", "", "drone id, auto-matched when empty")
	return cmd
}

func reassignCmd(opts *options) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reassign MISSION_ID",
		Short: "Free the current holders of a mission and assign it afresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts, func(svc *app.Service) error {
				res, err := svc.Assignments.HandleUrgentReassignment(ctxOf(cmd), args[0], reason)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, res)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "urgency reason recorded in the audit log")
	return cmd
}

func printResult(cmd *cobra.Command, opts *options, res assignment.Result) error {
	if opts.json {
		return printJSON(cmd, res)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "mission %s assigned to pilot %s and drone %s\n", res.MissionID, res.PilotID, res.DroneID)
	return err
}
