package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spacesedan/tweetsense/config"
	"github.com/spacesedan/tweetsense/internal/app"
	"github.com/spacesedan/tweetsense/internal/logging"
	"github.com/spf13/cobra"
)

var (
	appEnv string
	engine string
	count  int
)

var rootCmd = &cobra.Command{
	Use:           "classify",
	Short:         "Classify text or a user's recent tweets as Positive or Negative",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appEnv = os.Getenv("APP_ENV")
		if appEnv == "" {
			appEnv = "dev"
		}
		config.LoadEnv(appEnv)
		return nil
	},
}

var textCmd = &cobra.Command{
	Use:   "text <words...>",
	Short: "Classify a single piece of text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runText,
}

var userCmd = &cobra.Command{
	Use:   "user <username>",
	Short: "Fetch and classify a user's most recent tweets",
	Args:  cobra.ExactArgs(1),
	RunE:  runUser,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&engine, "engine", "", "sentiment engine (model or vader)")
	userCmd.Flags().IntVarP(&count, "count", "n", config.DefaultPostCount, "number of tweets to fetch")
	rootCmd.AddCommand(textCmd, userCmd)
}

func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(appEnv)
	if err != nil {
		return nil, err
	}
	if engine != "" {
		cfg.Engine = engine
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logging.InitLogger(cfg.LogLevel)
	return app.Bootstrap(cmd.Context(), cfg, false)
}

func runText(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Service.AnalyzeText(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sentiment: %s\n", result.Label)
	return nil
}

func runUser(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Service.AnalyzeUser(cmd.Context(), args[0], count)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d tweets for @%s (%d positive, %d negative)\n",
		len(report.Posts), report.Username, report.Positive, report.Negative)
	for _, p := range report.Posts {
		fmt.Fprintf(out, "[%s] %s\n", p.Analysis.Label, p.Post.Text)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
