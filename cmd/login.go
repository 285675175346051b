package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/store"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	flagLoginToken  string
	flagLoginUserID string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials in local client state",
	Long: "Store the user id and bearer token used by the client. Without --user-id " +
		"an interactive form asks for them.",
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&flagLoginToken, "token", "", "Bearer token")
	loginCmd.Flags().StringVar(&flagLoginUserID, "user-id", "", "User identifier")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(_ *cobra.Command, _ []string) error {
	sess := store.Session{
		UserID: strings.TrimSpace(flagLoginUserID),
		Token:  strings.TrimSpace(flagLoginToken),
	}

	if sess.UserID == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("User ID").
					Value(&sess.UserID).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errors.New("user id is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("Access token").
					EchoMode(huh.EchoModePassword).
					Value(&sess.Token),
			),
		)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println("  Login cancelled.")
				return nil
			}
			return fmt.Errorf("login form: %w", err)
		}
		sess.UserID = strings.TrimSpace(sess.UserID)
		sess.Token = strings.TrimSpace(sess.Token)
	}

	st, err := openState()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.SaveSession(sess); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	fmt.Printf("  Signed in as %s\n", sess.UserID)
	fmt.Printf("  Token: %s\n", cli.MaskToken(sess.Token))
	fmt.Printf("  State: %s\n", statePath())
	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	st, err := openState()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.ClearSession(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	fmt.Println("  Signed out.")
	return nil
}

func runWhoami(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	st, err := openState()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sess, err := st.Session()
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	if !sess.SignedIn() {
		fmt.Println()
		fmt.Println("  Not signed in.")
		fmt.Println()
		fmt.Println("  Sign in with:")
		fmt.Println("    fintrack login                               (interactive)")
		fmt.Println("    fintrack login --user-id U --token T         (one-shot)")
		fmt.Println()
		return nil
	}

	token := sess.Token
	source := "state"
	if env := config.GetEnvToken(); env != "" {
		token, source = env, "FINTRACK_TOKEN"
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("fintrack session"))
	fmt.Print(cli.RenderKV([][2]string{
		{"User ID", sess.UserID},
		{"Token", cli.MaskToken(token) + " (" + source + ")"},
		{"API URL", resolveBaseURL(cfg)},
		{"State", statePath()},
	}))
	fmt.Println()
	return nil
}
