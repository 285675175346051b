package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/fintrack/internal/api"
	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/daemon"
	"github.com/theirongolddev/fintrack/internal/notify"

	"github.com/spf13/cobra"
)

type watchRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	UserID    string    `json:"user_id"`
	BaseURL   string    `json:"base_url"`
}

var (
	flagWatchAddr         string
	flagWatchInterval     time.Duration
	flagWatchDetach       bool
	flagWatchPIDFile      string
	flagWatchLogFile      string
	flagWatchEventsBuffer int
	flagWatchChild        bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the notification watcher headless with HTTP/SSE endpoints",
	RunE:  runWatch,
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher process and API status",
	RunE:  runWatchStatus,
}

var watchStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running watcher",
	RunE:  runWatchStop,
}

func init() {
	watchCmd.PersistentFlags().StringVar(&flagWatchAddr, "addr", "127.0.0.1:8797", "HTTP listen address")
	watchCmd.PersistentFlags().StringVar(&flagWatchPIDFile, "pid-file", "", "PID file path (default: state dir)")
	watchCmd.PersistentFlags().StringVar(&flagWatchLogFile, "log-file", "", "Log file path for detached mode (default: state dir)")

	watchCmd.Flags().DurationVar(&flagWatchInterval, "interval", 0, "Polling interval (default: config notifications.poll_interval_ms)")
	watchCmd.Flags().IntVar(&flagWatchEventsBuffer, "events-buffer", 200, "Max in-memory events retained")
	watchCmd.Flags().BoolVar(&flagWatchDetach, "detach", false, "Run watcher as a background process")
	watchCmd.Flags().BoolVar(&flagWatchChild, "child", false, "Internal: mark detached child process")
	_ = watchCmd.Flags().MarkHidden("child")

	watchCmd.AddCommand(watchStatusCmd)
	watchCmd.AddCommand(watchStopCmd)
	rootCmd.AddCommand(watchCmd)
}

func watchPIDFile() string {
	if flagWatchPIDFile != "" {
		return flagWatchPIDFile
	}
	return filepath.Join(stateDir(), "fintrack-watch.pid")
}

func watchLogFile() string {
	if flagWatchLogFile != "" {
		return flagWatchLogFile
	}
	return filepath.Join(stateDir(), "fintrack-watch.log")
}

func runWatch(_ *cobra.Command, _ []string) error {
	if flagWatchDetach && flagWatchChild {
		return errors.New("invalid watch launch mode")
	}

	if flagWatchDetach {
		return startWatchDetached()
	}

	return runWatchForeground()
}

func startWatchDetached() error {
	pidFile := watchPIDFile()
	logFile := watchLogFile()
	if err := ensureWatchNotRunning(pidFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o750); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
		return fmt.Errorf("create watch log directory: %w", err)
	}

	//nolint:gosec // watch log path is configured by the local user
	logf, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open watch log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached watcher: %w", err)
	}

	fmt.Printf("  Started watcher (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidFile)
	fmt.Printf("  API: http://%s/v1/status\n", flagWatchAddr)
	fmt.Printf("  Log: %s\n", logFile)
	return nil
}

func runWatchForeground() error {
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

	pidFile := watchPIDFile()
	if err := ensureWatchNotRunning(pidFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pidFile), 0o750); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}

	pid := os.Getpid()
	if err := writePID(pidFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(pidFile) }()

	baseURL := resolveBaseURL(cfg)
	interval := flagWatchInterval
	if interval <= 0 {
		interval = cfg.PollInterval()
	}

	state := watchRuntimeState{
		PID:       pid,
		Addr:      flagWatchAddr,
		StartedAt: time.Now(),
		UserID:    sess.UserID,
		BaseURL:   baseURL,
	}
	_ = writeState(statePathFor(pidFile), state)
	defer func() { _ = os.Remove(statePathFor(pidFile)) }()

	token := sess.Token
	if env := config.GetEnvToken(); env != "" {
		token = env
	}

	svc := daemon.New(daemon.Config{
		Addr:         flagWatchAddr,
		EventsBuffer: flagWatchEventsBuffer,
		BaseURL:      baseURL,
		Logger:       log,
		Watch: notify.Config{
			UserID:   sess.UserID,
			Fetcher:  api.NewClient(baseURL, token, api.Options{Timeout: cfg.Timeout()}),
			Interval: interval,
		},
	})

	fmt.Printf("  fintrack watcher listening on http://%s\n", flagWatchAddr)
	fmt.Printf("  Polling %s every %s\n", baseURL, interval)
	fmt.Printf("  Stop with: fintrack watch stop --pid-file %s\n", pidFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runWatchStatus(_ *cobra.Command, _ []string) error {
	pidFile := watchPIDFile()
	pid, err := readPID(pidFile)
	if err != nil {
		fmt.Printf("  Watcher: not running (pid file not found)\n")
		return nil
	}

	if !processAlive(pid) {
		fmt.Printf("  Watcher: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := flagWatchAddr
	if st, err := readState(statePathFor(pidFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Watcher PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	lastPoll := "pending"
	if !st.LastCycleAt.IsZero() {
		lastPoll = st.LastCycleAt.Local().Format(time.RFC3339)
	}
	pairs := [][2]string{
		{"User ID", st.UserID},
		{"Backend", st.BaseURL},
		{"Interval", cli.FormatDuration(int64(st.PollIntervalSec))},
		{"Last poll", lastPoll},
		{"Cycles", cli.FormatNumber(st.Cycles) + " (" + cli.FormatNumber(st.Skipped) + " skipped, " +
			cli.FormatNumber(st.Failures) + " failed)"},
		{"Seen", cli.FormatNumber(int64(st.SeenCount))},
		{"Emitted", cli.FormatNumber(st.Emitted)},
		{"Subscribers", strconv.Itoa(st.SubscriberCount)},
	}
	if st.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", st.LastError})
	}
	fmt.Print(cli.RenderKV(pairs))
	return nil
}

func runWatchStop(_ *cobra.Command, _ []string) error {
	pidFile := watchPIDFile()
	pid, err := readPID(pidFile)
	if err != nil {
		return errors.New("watcher is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find watcher process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal watcher process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(pidFile)
			_ = os.Remove(statePathFor(pidFile))
			fmt.Printf("  Stopped watcher (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("watcher (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureWatchNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("watcher already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePathFor(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // watch pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePathFor(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st watchRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (watchRuntimeState, error) {
	var st watchRuntimeState
	//nolint:gosec // watch state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
