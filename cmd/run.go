package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vkuzmin/jobpilot/internal/ai"
	"github.com/vkuzmin/jobpilot/internal/ai/gemini"
	"github.com/vkuzmin/jobpilot/internal/filtering"
	"github.com/vkuzmin/jobpilot/internal/headhunter"
	"github.com/vkuzmin/jobpilot/internal/logger"
	"github.com/vkuzmin/jobpilot/internal/secrets"
	"github.com/vkuzmin/jobpilot/internal/supervisor"
	"github.com/vkuzmin/jobpilot/internal/workers"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const promptOwnRequest = "Type my own request"

// quickStartQueries are offered when the run command is called without a
// query argument.
var quickStartQueries = []string{
	"Extract and summarize my CV",
	"Find me relevant jobs matching my CV",
	"Generate a cover letter for the best matching vacancy",
}

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Route a request through the CV analyzer, vacancy searcher and letter generator",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("cv-file", "c", "", "path to the CV as plain text")
	runCmd.Flags().StringP("output-dir", "o", "", "directory for generated cover letters")

	viper.BindPFlag("cv-file", runCmd.Flags().Lookup("cv-file"))
	viper.BindPFlag("output-dir", runCmd.Flags().Lookup("output-dir"))
}

// run is the main command for the cli.
func run(_ *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting jobpilot", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		if query, err = selectQuery(); err != nil {
			logger.Fatal("selecting a query", zap.Error(err))
		}
	}

	token, err := resolveToken(config)
	if err != nil {
		logger.Warn("proceeding without a headhunter token, rate limits apply",
			zap.Error(err),
			zap.String("hint", "set HH_TOKEN_FILE environment variable or the 'token-file' key in the configuration file"),
		)
	}

	hh := headhunter.New(ctx, logger, token)

	if config.UserAgent != "" {
		hh.UserAgent = config.UserAgent
	}

	generator, err := newContentGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the content generator",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	registry, err := buildRegistry(config, hh, generator, logger)
	if err != nil {
		logger.Fatal("building the worker registry", zap.Error(err))
	}

	maxLogLength := 0
	if config.AI != nil && config.AI.Gemini != nil {
		maxLogLength = config.AI.Gemini.MaxLogLength
	}
	router := gemini.NewRouter(generator, logger, maxLogLength)

	var supCfg supervisor.Config
	if config.Supervisor != nil {
		supCfg = *config.Supervisor
	}

	manager := supervisor.NewManager(registry, router, logger)

	logger.Info("starting the run", zap.String("query", query))

	handle := manager.StartRun(ctx, query, supCfg)
	outcome := handle.Wait()
	final := manager.GetState(handle)

	report(logger, outcome, final)
}

func report(logger *zap.Logger, outcome supervisor.RunOutcome, final supervisor.View) {
	switch outcome.Status {
	case supervisor.StatusCompleted:
		logger.Info("run completed",
			zap.Int("turns", final.Turn),
			zap.Int("artifacts", len(final.Artifacts)),
		)
	case supervisor.StatusCancelled:
		logger.Warn("run cancelled", zap.Int("last_committed_turn", final.Turn))
	default:
		logger.Error("run aborted",
			zap.String("reason", string(outcome.Reason)),
			zap.Error(outcome.Err),
		)
	}

	for _, name := range []string{workers.NameAnalyzer, workers.NameSearcher, workers.NameGenerator} {
		artifact, ok := final.Artifact(name)
		if !ok {
			continue
		}

		logger.Info("artifact produced",
			zap.String("worker", name),
			zap.String("kind", artifact.Kind),
			zap.Int("chars", len(artifact.Content)),
		)

		fmt.Printf("\n--- %s (%s) ---\n%s\n", name, artifact.Kind, artifact.Content)
	}
}

func selectQuery() (string, error) {
	sel := promptui.Select{
		Label: "What should jobpilot do?",
		Items: append(append([]string{}, quickStartQueries...), promptOwnRequest),
	}

	_, choice, err := sel.Run()
	if err != nil {
		return "", err
	}

	if choice != promptOwnRequest {
		return choice, nil
	}

	input := promptui.Prompt{
		Label: "Your request",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("request must not be empty")
			}
			return nil
		},
	}

	return input.Run()
}

func buildRegistry(config *Config, hh *headhunter.Client, generator ai.ContentGenerator, logger *zap.Logger) (*supervisor.Registry, error) {
	analyzer, err := workers.NewAnalyzer(generator, config.CVFile, logger)
	if err != nil {
		return nil, err
	}

	var params headhunter.SearchParams
	if config.Search != nil {
		params = *config.Search
	}

	steps := []filtering.Filter{
		filtering.NewWithTest(),
		filtering.NewArchived(),
	}
	if config.Exclude != nil {
		steps = append(steps, filtering.NewEmployers(config.Exclude.Employers))
	}

	searcher, err := workers.NewSearcher(hh, params, steps, config.Shortlist, logger)
	if err != nil {
		return nil, err
	}

	letters, err := workers.NewGenerator(generator, config.OutputDir, logger)
	if err != nil {
		return nil, err
	}

	return workers.NewRegistry(analyzer, searcher, letters)
}

func resolveToken(config *Config) (string, error) {
	if config == nil {
		return "", errors.New("config is required")
	}

	tokenFile := strings.TrimSpace(config.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("token-file"))
	}

	if tokenFile == "" {
		return "", errors.New("headhunter token file is not configured")
	}

	return secrets.Load(secrets.Source{
		Name: "headhunter token",
		File: tokenFile,
	})
}

func newContentGenerator(ctx context.Context, cfg *AIConfig, baseLogger *zap.Logger) (ai.ContentGenerator, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKeyFile := strings.TrimSpace(cfg.Gemini.APIKeyFile)
	if apiKeyFile == "" {
		apiKeyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: apiKeyFile,
	})
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithCommonFields(baseLogger, "gemini", cfg.Gemini.Model)

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
}
