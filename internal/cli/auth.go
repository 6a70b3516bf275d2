package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/knowflow/internal/security"
	"github.com/spf13/cobra"
)

func init() {
	login := &cobra.Command{
		Use:         "login",
		Short:       "Sign in and remember the session",
		Annotations: map[string]string{skipProfile: "true"},
		Args:        cobra.NoArgs,
		RunE:        runLogin,
	}
	login.Flags().StringP("email", "e", "", "Account email")
	login.Flags().StringP("password", "p", "", "Password (read from stdin when omitted)")
	login.MarkFlagRequired("email")

	register := &cobra.Command{
		Use:         "register",
		Short:       "Create an account",
		Annotations: map[string]string{skipProfile: "true"},
		Args:        cobra.NoArgs,
		RunE:        runRegister,
	}
	register.Flags().StringP("username", "u", "", "Username (3-50 characters)")
	register.Flags().StringP("email", "e", "", "Account email")
	register.Flags().StringP("password", "p", "", "Password, at least 8 characters (read from stdin when omitted)")

	logout := &cobra.Command{
		Use:         "logout",
		Short:       "Forget the stored session",
		Annotations: map[string]string{skipProfile: "true"},
		Args:        cobra.NoArgs,
		RunE:        runLogout,
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}

	RootCmd.AddCommand(login, register, logout, whoami)
}

func readPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	email, _ := cmd.Flags().GetString("email")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	auth := e.app.Auth
	if !auth.Login(cmd.Context(), email, password) {
		return storeError(auth.Snapshot().Error, "Login failed")
	}

	state := auth.Snapshot()
	if asJSON() {
		return printJSON(cmd.OutOrStdout(), state)
	}

	name := email
	if state.User != nil && state.User.Username != "" {
		name = state.User.Username
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed in as "+name))
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	auth := e.app.Auth
	if !auth.Register(cmd.Context(), username, email, password) {
		return storeError(auth.Snapshot().Error, "Registration failed")
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]string{"username": username, "email": email})
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Account created.")+" Sign in with `knowflow login -e "+email+"`.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	e.app.Auth.Logout(cmd.Context())

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), e.app.Auth.Snapshot())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

type whoamiOutput struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	state := e.app.Auth.Snapshot()
	out := whoamiOutput{}
	if state.User != nil {
		out.Username = state.User.Username
		out.Email = state.User.Email
		out.Role = state.User.Role
	}

	// opaque tokens are fine; only JWTs carry an expiry to show
	if token, ok := e.app.Auth.Token(cmd.Context()); ok {
		if info, err := security.InspectToken(token); err == nil {
			out.ExpiresAt = info.ExpiresAt
		}
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s <%s>\n", headerStyle.Render(out.Username), out.Email)
	if out.Role != "" {
		fmt.Fprintln(w, mutedStyle.Render("role: "+out.Role))
	}
	if out.ExpiresAt != nil {
		fmt.Fprintln(w, mutedStyle.Render("session expires "+out.ExpiresAt.Local().Format(time.RFC1123)))
	}
	return nil
}
