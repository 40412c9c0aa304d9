package cmd

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	var banner bool
	return withoutSession(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if banner {
				displayAppname(cmd, a.cfg.GetAppName())
			}
			fmt.Fprintf(out, "%s %s (%s)\n", a.cfg.GetAppName(), a.cfg.GetAppVersion(), a.cfg.GetEnv())
			return nil
		},
	}, func(cmd *cobra.Command) {
		cmd.Flags().BoolVar(&banner, "banner", false, "Print the application banner")
	})
}

func displayAppname(cmd *cobra.Command, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(cmd.OutOrStdout(), myFigure.String())
}

// withoutSession marks cmd to skip opening the state store and session.
func withoutSession(cmd *cobra.Command, flags ...func(*cobra.Command)) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationNoSession] = "true"
	for _, f := range flags {
		f(cmd)
	}
	return cmd
}
