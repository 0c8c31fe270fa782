// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/storeconsole/internal/backend"
	"github.com/taibuivan/storeconsole/internal/console"
	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/platform/validate"
	"github.com/taibuivan/storeconsole/internal/session"
)

// profilePath is a signed-in page outside the sidebar.
const profilePath = "/profile"

// cli builds the command tree and owns the lazily opened [app].
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	app         *app
	metricsFile string
}

func (c *cli) root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Store admin console",
		Long:          "Manage the store's catalogue, purchases, sales and staff from the terminal.",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(c.stdin)
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)

	cmd.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "Write session metrics to this file on exit")

	cmd.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.refreshCmd(),
		c.forgotPasswordCmd(),
		c.resetPasswordCmd(),
		c.registerCmd(),
		c.navCmd(),
		c.listCmd(),
		c.getCmd(),
		c.deleteCmd(),
		c.brandLinesCmd(),
		c.supplierProductsCmd(),
		c.auditEventsCmd(),
	)
	return cmd
}

// open wires the app on first use.
func (c *cli) open(cmd *cobra.Command) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := newApp(cmd.Context(), c.stdout, c.stderr)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

// guarded opens the app and runs the section guard for path.
func (c *cli) guarded(cmd *cobra.Command, path string) (*app, error) {
	a, err := c.open(cmd)
	if err != nil {
		return nil, err
	}
	if err := console.Guard(cmd.Context(), a.manager, path); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *cli) finish() error {
	if c.app == nil {
		return nil
	}
	defer c.app.close()
	return c.app.writeMetrics(c.metricsFile)
}

// secret returns value, or reads one line from stdin when it is empty.
func (c *cli) secret(cmd *cobra.Command, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// printJSON pretty-prints a raw backend document.
func printJSON(out io.Writer, raw json.RawMessage) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(out, string(raw))
		return err
	}
	_, err := fmt.Fprintln(out, pretty.String())
	return err
}

// # Session commands

func (c *cli) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.secret(cmd, "Password", password)
			if err != nil {
				return err
			}

			validator := &validate.Validator{}
			validator.Required("email", email).Email("email", email).Required("password", password)
			if err := validator.Err(); err != nil {
				return err
			}

			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			response, err := a.client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := a.manager.SetTokens(ctx, response.AccessToken, response.RefreshToken); err != nil {
				return err
			}
			if response.User != nil {
				if err := a.manager.SetUser(ctx, response.User); err != nil {
					return err
				}
			}

			principal, ok := a.manager.Principal()
			if !ok {
				return fmt.Errorf("login: backend returned an unreadable token")
			}
			fmt.Fprintf(a.stdout, "Signed in as %s (%s).\n", principal.DisplayName(), principal.Role.Label())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			return a.manager.Logout(cmd.Context())
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.guarded(cmd, profilePath)
			if err != nil {
				return err
			}

			principal, _ := a.manager.Principal()
			fmt.Fprintf(a.stdout, "%s <%s>\nRole:    %s\nExpires: %s\n",
				principal.DisplayName(),
				principal.Email,
				principal.Role.Label(),
				time.Unix(principal.ExpiresAt, 0).Format(time.RFC3339),
			)
			return nil
		},
	}
}

func (c *cli) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token if it is about to expire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.guarded(cmd, profilePath)
			if err != nil {
				return err
			}

			principal, _ := a.manager.Principal()
			fmt.Fprintf(a.stdout, "Session valid until %s.\n", time.Unix(principal.ExpiresAt, 0).Format(time.RFC3339))
			return nil
		},
	}
}

func (c *cli) forgotPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (&validate.Validator{}).Required("email", email).Email("email", email).Err(); err != nil {
				return err
			}

			a, err := c.open(cmd)
			if err != nil {
				return err
			}

			response, err := a.plain.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			if !response.Success {
				return fmt.Errorf("forgot-password: the request was not accepted")
			}
			fmt.Fprintln(a.stdout, response.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.secret(cmd, "New password", password)
			if err != nil {
				return err
			}

			validator := &validate.Validator{}
			validator.Required("token", token).Password("password", password, validate.PasswordContext{})
			if err := validator.Err(); err != nil {
				return err
			}

			a, err := c.open(cmd)
			if err != nil {
				return err
			}

			response, err := a.plain.ResetPassword(cmd.Context(), token, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, response.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "Reset token from the email link")
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password (read from stdin when omitted)")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var input backend.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			validator := &validate.Validator{}
			validator.
				Required("first-name", input.FirstName).
				Required("last-name", input.LastName).
				Required("email", input.Email).Email("email", input.Email).
				Password("password", input.Password, validate.PasswordContext{
					Email: input.Email, FirstName: input.FirstName, LastName: input.LastName,
				})
			if err := validator.Err(); err != nil {
				return err
			}

			section, _ := console.SectionForResource(backend.Users)
			a, err := c.guarded(cmd, section.Path)
			if err != nil {
				return err
			}

			input.Role = session.RoleEmployee
			created, err := a.client.RegisterEmployee(cmd.Context(), input)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("register: the backend did not confirm the account")
			}
			fmt.Fprintf(a.stdout, "Registered %s %s <%s>.\n", input.FirstName, input.LastName, input.Email)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.FirstName, "first-name", "", "First name")
	flags.StringVar(&input.LastName, "last-name", "", "Last name")
	flags.StringVar(&input.Email, "email", "", "Email")
	flags.StringVar(&input.Password, "password", "", "Initial password")
	flags.StringVar(&input.Address, "address", "", "Postal address")
	flags.StringVar(&input.Phone, "phone", "", "Phone number")
	return cmd
}

func (c *cli) navCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nav",
		Short: "List the sections you can open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.guarded(cmd, profilePath)
			if err != nil {
				return err
			}

			for _, group := range console.Sidebar(a.manager) {
				fmt.Fprintln(a.stdout, group.Title)
				for _, section := range group.Sections {
					name := ""
					if section.Resource != "" {
						name = "  [" + resourceName(section.Resource) + "]"
					}
					fmt.Fprintf(a.stdout, "  %-14s %s%s\n", section.Title, section.Path, name)
				}
			}
			return nil
		},
	}
}

// # Resource commands

// resourceName is the console name accepted by [backend.ParseResource].
func resourceName(resource backend.Resource) string {
	for _, name := range backend.ResourceNames() {
		if parsed, _ := backend.ParseResource(name); parsed == resource {
			return name
		}
	}
	return string(resource)
}

// resourceGuard parses name and guards its section.
func (c *cli) resourceGuard(cmd *cobra.Command, name string) (*app, backend.Resource, error) {
	resource, err := backend.ParseResource(name)
	if err != nil {
		return nil, "", err
	}

	path := "/" + string(resource)
	if section, ok := console.SectionForResource(resource); ok {
		path = section.Path
	}

	a, err := c.guarded(cmd, path)
	if err != nil {
		return nil, "", err
	}
	return a, resource, nil
}

func (c *cli) listCmd() *cobra.Command {
	var filter backend.AuditFilter

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List a collection (" + strings.Join(backend.ResourceNames(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, resource, err := c.resourceGuard(cmd, args[0])
			if err != nil {
				return err
			}

			var raw json.RawMessage
			if resource == backend.Audit {
				raw, err = a.client.AuditLog(cmd.Context(), filter)
			} else {
				raw, err = a.client.List(cmd.Context(), resource)
			}
			if err != nil {
				return err
			}
			return printJSON(a.stdout, raw)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&filter.UserID, "user", 0, "Audit: only events of this user id")
	flags.StringVar(&filter.EventType, "event", "", "Audit: only this event type")
	flags.StringVar(&filter.From, "from", "", "Audit: first day (YYYY-MM-DD)")
	flags.StringVar(&filter.To, "to", "", "Audit: last day (YYYY-MM-DD)")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, resource, err := c.resourceGuard(cmd, args[0])
			if err != nil {
				return err
			}
			raw, err := a.client.Get(cmd.Context(), resource, args[1])
			if err != nil {
				return err
			}
			return printJSON(a.stdout, raw)
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, resource, err := c.resourceGuard(cmd, args[0])
			if err != nil {
				return err
			}
			if err := a.client.Delete(cmd.Context(), resource, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted %s %s.\n", resourceName(resource), args[1])
			return nil
		},
	}
}

func (c *cli) brandLinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brand-lines <brand-id>",
		Short: "List the product lines of a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := c.resourceGuard(cmd, string(backend.Brands))
			if err != nil {
				return err
			}
			raw, err := a.client.BrandLines(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(a.stdout, raw)
		},
	}
}

func (c *cli) supplierProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supplier-products <supplier-id>",
		Short: "List the products a supplier offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := c.resourceGuard(cmd, string(backend.Suppliers))
			if err != nil {
				return err
			}
			raw, err := a.client.SupplierProducts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(a.stdout, raw)
		},
	}
}

func (c *cli) auditEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit-events",
		Short: "List the audit event types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := c.resourceGuard(cmd, string(backend.Audit))
			if err != nil {
				return err
			}
			types, err := a.client.AuditEventTypes(cmd.Context())
			if err != nil {
				return err
			}
			for _, eventType := range types {
				fmt.Fprintln(a.stdout, eventType)
			}
			return nil
		},
	}
}
