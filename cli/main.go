// Command formdesk-cli takes surveys over the form WebSocket server and runs
// admin tasks against the survey API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xiaot623/formdesk/internal/policy"
	"github.com/xiaot623/formdesk/internal/surveyapi"
)

var (
	// Global flags
	verbose    bool
	apiURL     string
	publicHost string
	timeout    time.Duration

	// Logger
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "formdesk-cli",
	Short:         "Take surveys and manage responses from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("SURVEY_API_URL", "http://localhost:9900"), "Survey API base URL")
	rootCmd.PersistentFlags().StringVar(&publicHost, "public-host", envOr("PUBLIC_HOST", "localhost"), "Host sent as Referer on public calls")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "API call timeout")

	takeCmd.Flags().StringVar(&formAddr, "addr", "ws://localhost:8090/ws", "Form WebSocket server address")
	takeCmd.Flags().StringVar(&respondentID, "respondent", "", "Respondent id to resume a previous session")

	responsesCmd.Flags().IntVar(&responsesPage, "page", 1, "Page number")
	responsesCmd.Flags().StringVar(&responsesSort, "sort-by", "created_at", "Sort column: uuid, created_at, completed_at or status")
	responsesCmd.Flags().StringVar(&responsesOrder, "order", "desc", "Sort order: asc or desc")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "survey_responses.json", "Output file")
	downloadCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: the file name)")

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(surveysCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(responsesCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(downloadCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newAPIClient() *surveyapi.Client {
	return surveyapi.NewClient(apiURL, publicHost, timeout)
}

func newPolicyEngine(ctx context.Context) (*policy.Engine, error) {
	return policy.NewEngine(ctx, policy.DefaultPolicy)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
