package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/huyng1801/restobot/backend/internal/config"
	"github.com/huyng1801/restobot/backend/internal/model/auth"
	"github.com/huyng1801/restobot/backend/internal/model/chat"
	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
	"github.com/huyng1801/restobot/backend/internal/service/account"
	chatService "github.com/huyng1801/restobot/backend/internal/service/chat"
	"github.com/huyng1801/restobot/backend/internal/service/connectivity"
	"github.com/huyng1801/restobot/backend/internal/service/dialogue"
	suggestionService "github.com/huyng1801/restobot/backend/internal/service/suggestion"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	timeout time.Duration
	verbose bool

	bearerToken     string
	username        string
	sessionID       string
	suggestionIndex int
	shuffle         bool
)

var rootCmd = &cobra.Command{
	Use:   "chattester",
	Short: "Manual checks against the Rasa and REST API backends",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] 无法加载 .env，改用系统环境变量: %v\n", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = config.SetupLoggerWithWriters(os.Stderr, nil, level)
		return nil
	},
	SilenceUsage: true,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether Rasa and the REST API are reachable",
	RunE:  runProbe,
}

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send one message through the dispatcher and print the transcript",
	Long: `Send one message exactly as the gateway would: Rasa first, then one
fallback attempt on the REST API.

Examples:
  chattester send "Cho tôi xem thực đơn" --token $TOKEN
  chattester send "Đặt bàn cho 4 người" --username demo
  chattester send --suggestion 3 --username demo`,
	RunE: runSend,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Print the quick suggestions with their catalog index",
	RunE:  runSuggest,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 45*time.Second, "请求超时时间")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	sendCmd.Flags().StringVar(&bearerToken, "token", "", "bearer token, resolved through /api/v1/users/me")
	sendCmd.Flags().StringVar(&username, "username", "", "local user name when no token is given")
	sendCmd.Flags().StringVar(&sessionID, "session", "", "自定义 sender，留空则自动生成")
	sendCmd.Flags().IntVar(&suggestionIndex, "suggestion", -1, "send the catalog suggestion at this index instead of a message")

	suggestCmd.Flags().BoolVar(&shuffle, "shuffle", false, "print in a per-session random order")

	rootCmd.AddCommand(probeCmd, sendCmd, suggestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	prober := connectivity.NewProber(cfg.Backend.DialogueURL, cfg.Backend.RestAPIURL, cfg.Backend.ProbeTimeout, nil, logger)
	status := prober.GetStatus(ctx)

	fmt.Printf("rasa     %-5v %s\n", status.DialogueEngineUp, cfg.Backend.DialogueURL)
	fmt.Printf("fastApi  %-5v %s\n", status.RestAPIUp, cfg.Backend.RestAPIURL)
	fmt.Println(status.Summary)
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	httpClient := &http.Client{Timeout: cfg.Backend.RequestTimeout}

	sc, err := resolveSessionContext(ctx, httpClient)
	if err != nil {
		return err
	}

	catalog := suggestion.NewMemoryStore(suggestion.Seed())
	message := strings.Join(args, " ")
	if suggestionIndex >= 0 {
		item, ok := catalog.At(suggestionIndex)
		if !ok {
			return fmt.Errorf("suggestion %d out of range (0-%d)", suggestionIndex, len(catalog.List())-1)
		}
		message = item.Text
	}

	sessions := chatService.NewService(catalog, 1, time.Hour)
	session := sessions.GetOrCreate(sessionID)

	dispatcher := chatService.NewDispatcher(
		dialogue.NewRasaClient(cfg.Backend.DialogueURL, httpClient),
		dialogue.NewRestClient(cfg.Backend.RestAPIURL, httpClient),
		cfg.Backend.RequestTimeout,
		logger,
	)

	start := time.Now()
	result, err := dispatcher.Dispatch(ctx, session, sc, message)
	if err != nil {
		return err
	}

	fmt.Printf("outcome=%s channel=%s elapsed=%s\n\n", result.Outcome, result.Channel, time.Since(start).Round(time.Millisecond))
	for _, entry := range result.Entries {
		printEntry(entry)
	}
	if orderID, ok := session.PendingOrderID().Get(); ok {
		fmt.Printf("\npending order: #%s\n", orderID)
	}
	return nil
}

func resolveSessionContext(ctx context.Context, httpClient *http.Client) (*auth.SessionContext, error) {
	if bearerToken != "" {
		accounts := account.NewClient(cfg.Backend.RestAPIURL, httpClient, 1, time.Minute)
		user, err := accounts.CurrentUser(ctx, bearerToken)
		if err != nil {
			return nil, fmt.Errorf("resolve token: %w", err)
		}
		return auth.NewSessionContext(user, bearerToken), nil
	}
	if username != "" {
		return auth.NewSessionContext(&auth.User{Username: username, FullName: username}, ""), nil
	}
	return auth.Anonymous(), nil
}

func printEntry(entry chat.Entry) {
	fmt.Printf("[%s] %s\n", entry.Sender, entry.Text)
	if entry.Image != "" {
		fmt.Printf("    image: %s\n", entry.Image)
	}
	for _, dish := range entry.Dishes {
		price := "-"
		if dish.Price != nil {
			price = fmt.Sprintf("%.0f", *dish.Price)
		}
		fmt.Printf("    • %s (%s)\n", dish.Name, price)
	}
	for _, button := range entry.Buttons {
		fmt.Printf("    [%s] -> %s\n", button.Title, button.Payload)
	}
}

func runSuggest(cmd *cobra.Command, args []string) error {
	items := suggestion.Seed()
	if shuffle {
		items = suggestionService.Shuffle(items)
	}
	for i, item := range items {
		fmt.Printf("%2d. %-14s %s\n", i, item.Category, item.Text)
	}
	return nil
}
