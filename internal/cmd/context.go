package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-platform-client/model"
	"github.com/spf13/cobra"
)

type contextView struct {
	State        string   `json:"state" yaml:"state"`
	System       string   `json:"system,omitempty" yaml:"system,omitempty"`
	Role         string   `json:"role,omitempty" yaml:"role,omitempty"`
	Organization string   `json:"organization,omitempty" yaml:"organization,omitempty"`
	Permissions  []string `json:"permissions" yaml:"permissions"`
}

func newContextCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show the active system, role and permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.session.Snapshot()
			c := snap.Context
			view := contextView{
				State:       snap.State.String(),
				System:      c.SystemCode(),
				Permissions: c.Permissions.Codes(),
			}
			if view.Permissions == nil {
				view.Permissions = []string{}
			}
			if c.Role != nil {
				view.Role = c.Role.Name
			}
			if c.Organization != nil {
				view.Organization = c.Organization.Name
			}

			return render(cmd, view, func(w io.Writer) error {
				fmt.Fprintf(w, "State:        %s\n", view.State)
				if view.System != "" {
					fmt.Fprintf(w, "System:       %s\n", view.System)
				}
				if view.Role != "" {
					fmt.Fprintf(w, "Role:         %s\n", view.Role)
				}
				if view.Organization != "" {
					fmt.Fprintf(w, "Organization: %s\n", view.Organization)
				}
				fmt.Fprintf(w, "Permissions:  %s\n", strings.Join(view.Permissions, ", "))
				return nil
			})
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func newMenusCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "menus",
		Short: "Show the menu tree for the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			menus := a.session.ActiveMenus()
			if !all {
				menus = menus.Visible()
			}
			if menus == nil {
				menus = model.MenuTree{}
			}

			return render(cmd, menus, func(w io.Writer) error {
				if menus.Len() == 0 {
					fmt.Fprintln(w, "No menus")
					return nil
				}
				menus.Walk(func(item model.MenuItem, depth int) bool {
					hidden := ""
					if !item.IsVisible {
						hidden = " (hidden)"
					}
					fmt.Fprintf(w, "%s%s  %s%s\n", strings.Repeat("  ", depth), item.Name, item.Path, hidden)
					return true
				})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include hidden menu items")
	addFormatFlag(cmd)
	return cmd
}

func newCanCmd(a *app) *cobra.Command {
	var anyOf bool
	cmd := &cobra.Command{
		Use:   "can <permission>...",
		Short: "Check permission codes against the current context",
		Long: `Check one or more permission codes. All codes must be held unless --any is
given. The command exits non-zero when the check fails.`,
		Example: `  platformctl can admin.user.view
  platformctl can --any admin.user.create admin.user.edit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := a.session.Permissions()
			allowed := resolver.All(args...)
			if anyOf {
				allowed = resolver.Any(args...)
			}
			if !allowed {
				return fmt.Errorf("denied: %s", strings.Join(args, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "allowed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&anyOf, "any", false, "Pass when any one code is held")
	return cmd
}
