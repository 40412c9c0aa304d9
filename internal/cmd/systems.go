package cmd

import (
	"fmt"
	"io"

	"github.com/jrsteele09/go-platform-client/switcher"
	"github.com/spf13/cobra"
)

type roleView struct {
	ID           int    `json:"id" yaml:"id"`
	Code         string `json:"code" yaml:"code"`
	Name         string `json:"name" yaml:"name"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

type systemView struct {
	Code   string     `json:"code" yaml:"code"`
	Name   string     `json:"name" yaml:"name"`
	Active bool       `json:"active" yaml:"active"`
	Roles  []roleView `json:"roles" yaml:"roles"`
}

func newSystemsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "systems",
		Short: "List the systems you can enter",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAuthenticated() {
				return fmt.Errorf("not logged in")
			}
			active := a.session.Snapshot().Context.SystemCode()

			views := []systemView{}
			for _, sr := range a.session.AvailableSystems() {
				v := systemView{
					Code:   sr.System.Code,
					Name:   sr.System.Name,
					Active: sr.System.Code == active,
					Roles:  []roleView{},
				}
				for _, r := range sr.Roles {
					v.Roles = append(v.Roles, roleView{ID: r.ID, Code: r.Code, Name: r.Name, Organization: r.OrganizationName})
				}
				views = append(views, v)
			}

			return render(cmd, views, func(w io.Writer) error {
				if len(views) == 0 {
					fmt.Fprintln(w, "No systems available")
					return nil
				}
				for _, v := range views {
					marker := " "
					if v.Active {
						marker = "*"
					}
					fmt.Fprintf(w, "%s %-12s %s\n", marker, v.Code, v.Name)
					for _, r := range v.Roles {
						if r.Organization != "" {
							fmt.Fprintf(w, "    role %d %s (%s)\n", r.ID, r.Name, r.Organization)
						} else {
							fmt.Fprintf(w, "    role %d %s\n", r.ID, r.Name)
						}
					}
				}
				return nil
			})
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func newSwitchCmd(a *app) *cobra.Command {
	var role int
	var org int64
	cmd := &cobra.Command{
		Use:   "switch <system-code>",
		Short: "Enter a system",
		Long: `Enter a system by its code. The first role held in the system is used
unless --role is given, and that role's organization unless --org is given.`,
		Example: `  platformctl switch admin
  platformctl switch admin --role 10 --org 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var options []switcher.SwitchOption
			if cmd.Flags().Changed("role") {
				options = append(options, switcher.WithRole(role))
			}
			if cmd.Flags().Changed("org") {
				options = append(options, switcher.WithOrganization(org))
			}
			if err := a.session.Switch(cmd.Context(), args[0], options...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entered system %s\n", a.session.Snapshot().Context.SystemCode())
			return nil
		},
	}
	cmd.Flags().IntVar(&role, "role", 0, "Role ID to assume")
	cmd.Flags().Int64Var(&org, "org", 0, "Organization ID to act for")
	return cmd
}

func newExitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "Leave the current system and return to the platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Exit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Back on the platform")
			return nil
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the current context from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Sync(cmd.Context()); err != nil {
				return err
			}
			if err := a.session.Heartbeat(cmd.Context()); err != nil {
				a.log.Warn().Err(err).Msg("device heartbeat failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Context synced (%s)\n", a.session.State())
			return nil
		},
	}
}
