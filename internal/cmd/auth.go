package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the platform",
		Long: `Log in with email and password. When --password is omitted it is read from
the first line of standard input.

On success the platform token is stored and, unless PLATFORM_AUTO_SWITCH is
false, the default system is entered.`,
		Example: `  platformctl login --email john.doe@example.com --password Password123
  echo "$PASSWORD" | platformctl login --email john.doe@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = pw
			}

			user, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in as %s\n", user.DisplayName())
			if code := a.session.Snapshot().Context.SystemCode(); code != "" {
				fmt.Fprintf(out, "Entered system %s\n", code)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when empty)")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no password given")
	}
	return line, nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

type tokenView struct {
	Kind    string     `json:"kind" yaml:"kind"`
	Active  bool       `json:"active" yaml:"active"`
	Expiry  *time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Expired bool       `json:"expired" yaml:"expired"`
}

type whoamiView struct {
	Authenticated bool        `json:"authenticated" yaml:"authenticated"`
	Email         string      `json:"email,omitempty" yaml:"email,omitempty"`
	Name          string      `json:"name,omitempty" yaml:"name,omitempty"`
	DeviceUID     string      `json:"device_uid" yaml:"device_uid"`
	State         string      `json:"state" yaml:"state"`
	System        string      `json:"system,omitempty" yaml:"system,omitempty"`
	Tokens        []tokenView `json:"tokens" yaml:"tokens"`
}

func newWhoamiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user, device and held tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := a.session.DeviceUID(cmd.Context())
			if err != nil {
				return err
			}
			snap := a.session.Snapshot()
			view := whoamiView{
				Authenticated: a.session.IsAuthenticated(),
				DeviceUID:     uid,
				State:         snap.State.String(),
				System:        snap.Context.SystemCode(),
				Tokens:        []tokenView{},
			}
			if user := a.session.User(); user != nil {
				view.Email = user.Email
				view.Name = user.DisplayName()
			}
			for _, info := range a.session.TokenInfos() {
				tv := tokenView{Kind: string(info.Kind), Active: info.Active, Expired: info.Expired}
				if !info.Expiry.IsZero() {
					expiry := info.Expiry
					tv.Expiry = &expiry
				}
				view.Tokens = append(view.Tokens, tv)
			}

			return render(cmd, view, func(w io.Writer) error {
				if !view.Authenticated {
					fmt.Fprintln(w, "Not logged in")
				} else {
					fmt.Fprintf(w, "User:   %s <%s>\n", view.Name, view.Email)
				}
				fmt.Fprintf(w, "Device: %s\n", view.DeviceUID)
				fmt.Fprintf(w, "State:  %s", view.State)
				if view.System != "" {
					fmt.Fprintf(w, " (%s)", view.System)
				}
				fmt.Fprintln(w)
				for _, tv := range view.Tokens {
					marker := " "
					if tv.Active {
						marker = "*"
					}
					expiry := "unknown expiry"
					if tv.Expiry != nil {
						expiry = "expires " + tv.Expiry.Local().Format(time.RFC3339)
					}
					if tv.Expired {
						expiry = "expired"
					}
					fmt.Fprintf(w, "%s %-8s %s\n", marker, tv.Kind, expiry)
				}
				return nil
			})
		},
	}
	addFormatFlag(cmd)
	return cmd
}
