package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/fintrack/internal/api"
	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/notify"

	"github.com/spf13/cobra"
)

var flagNotificationsJSON bool

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notifs"},
	Short:   "Fetch the notification list once",
	RunE:    runNotifications,
}

func init() {
	notificationsCmd.Flags().BoolVar(&flagNotificationsJSON, "json", false, "Print normalized records as JSON")
	rootCmd.AddCommand(notificationsCmd)
}

func runNotifications(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	log := newConsoleLogger(cfg)

	st, err := openState()
	if err != nil {
		return err
	}
	sess, err := st.Session()
	_ = st.Close()
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	if !sess.SignedIn() {
		return errors.New("not signed in (run `fintrack login` first)")
	}

	token := sess.Token
	if env := config.GetEnvToken(); env != "" {
		token = env
	}
	client := api.NewClient(resolveBaseURL(cfg), token, api.Options{Timeout: cfg.Timeout()})

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Fetching notifications from %s...\n", client.BaseURL())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Timeout()+time.Second)
	defer cancel()

	records, err := notify.Fetch(ctx, client, log)
	if err != nil {
		return err
	}

	if flagNotificationsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		type record struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		}
		out := make([]record, len(records))
		for i, r := range records {
			out[i] = record{ID: r.ID, Text: r.Text()}
		}
		return enc.Encode(out)
	}

	if len(records) == 0 {
		fmt.Println("  No notifications.")
		return nil
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.ID, cli.Truncate(r.Text(), 72)}
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     fmt.Sprintf("Notifications (%s)", cli.FormatNumber(int64(len(records)))),
		Headers:   []string{"ID", "Message"},
		Rows:      rows,
		LeftAlign: true,
	}))
	return nil
}
