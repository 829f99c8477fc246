package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nvsudo/jodi/internal/conversation"
	"github.com/nvsudo/jodi/internal/extraction"
	"github.com/nvsudo/jodi/internal/extraction/gemini"
	"github.com/nvsudo/jodi/internal/logger"
	"github.com/nvsudo/jodi/internal/secrets"
	"github.com/nvsudo/jodi/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// In-session commands. Anything else is treated as a message to jodi.
const (
	CommandProgress   = "/progress"
	CommandMatches    = "/matches"
	CommandInterested = "/interested"
	CommandPass       = "/pass"
	CommandQuit       = "/quit"

	historySeed = 10
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive profile-building session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("user", "u", "", "stable user id for the session")
}

// run drives one interactive conversation session.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := bootstrap()

	userID := strings.TrimSpace(cmd.Flag("user").Value.String())
	if userID == "" {
		logger.Fatal("user id is required", zap.String("hint", "pass --user with a stable identifier"))
	}

	st := openStore(ctx, config, logger)
	defer st.Close()

	orc := newOrchestrator(ctx, config, st, userID, logger)

	known, err := st.GetUser(ctx, userID)
	if err != nil {
		logger.Fatal("loading user", zap.Error(err))
	}

	if _, err := orc.StartSession(ctx, userID); err != nil {
		logger.Fatal("starting session", zap.Error(err))
	}

	if known == nil {
		fmt.Println(conversation.WelcomeMessage())
	} else if summary, err := orc.ProgressSummary(ctx, userID); err == nil {
		fmt.Println("Welcome back!\n\n" + summary)
	}

	history, err := st.RecentTurns(ctx, userID, historySeed)
	if err != nil {
		logger.Warn("loading conversation history", zap.Error(err))
	}

	prompt := promptui.Prompt{Label: "you"}

	for {
		message, err := prompt.Run()
		if err != nil {
			logger.Info("exiting", zap.String("reason", "input closed"))
			return
		}

		message = strings.TrimSpace(message)

		switch {
		case message == "":
			continue
		case strings.EqualFold(message, CommandQuit):
			logger.Info("exiting", zap.String("reason", "quit requested"))
			return
		case strings.EqualFold(message, CommandProgress):
			summary, err := orc.ProgressSummary(ctx, userID)
			if err != nil {
				logger.Warn("building progress summary", zap.Error(err))
				continue
			}
			fmt.Println(summary)
			continue
		case strings.EqualFold(message, CommandMatches):
			printMatches(ctx, st, userID, logger)
			continue
		}

		if words := strings.Fields(message); len(words) == 2 {
			switch strings.ToLower(words[0]) {
			case CommandInterested:
				respondToMatch(ctx, st, logger, userID, words[1], store.MatchStatusInterested)
				continue
			case CommandPass:
				respondToMatch(ctx, st, logger, userID, words[1], store.MatchStatusRejected)
				continue
			}
		}

		reply, err := orc.HandleMessage(ctx, userID, message, history)
		if err != nil {
			logger.Fatal("handling message", zap.Error(err))
		}

		history = append(history,
			extraction.Turn{Role: "user", Content: message},
			extraction.Turn{Role: "assistant", Content: reply.Message},
		)

		fmt.Println(reply.Message)
	}
}

func printMatches(ctx context.Context, st *store.Store, userID string, logger *zap.Logger) {
	matches, err := st.MatchesForUser(ctx, userID, 0)
	if err != nil {
		logger.Warn("loading matches", zap.Error(err))
		return
	}

	if len(matches) == 0 {
		fmt.Printf("No matches yet. Run '%s match --user %s' to search.\n", app, userID)
		return
	}

	for _, m := range matches {
		fmt.Printf("%s - score %.1f (%s)\n", m.Other(userID), m.Score, m.Status)
	}
	fmt.Printf("Reply '%s <id>' or '%s <id>' to respond to a proposal.\n", CommandInterested, CommandPass)
}

// respondToMatch records the user's verdict on a proposed match, the CLI
// stand-in for the interested/pass buttons of the chat surface.
func respondToMatch(ctx context.Context, st *store.Store, logger *zap.Logger, userID, otherID, status string) {
	matches, err := st.MatchesForUser(ctx, userID, 0)
	if err != nil {
		logger.Warn("loading matches", zap.Error(err))
		return
	}

	for _, m := range matches {
		if m.Status != store.MatchStatusProposed || m.Other(userID) != otherID {
			continue
		}

		if err := st.UpdateMatchStatus(ctx, m.ID, status); err != nil {
			logger.Warn("updating match status", zap.Int64("match_id", m.ID), zap.Error(err))
			return
		}

		if status == store.MatchStatusInterested {
			fmt.Println("Great! I'll let them know you're interested. 💫\n\nIf they're also interested, I'll introduce you both!")
		} else {
			fmt.Println("No problem! I'll keep looking for better matches. 🙏")
		}
		return
	}

	fmt.Printf("No proposed match with %s found. Send %s to list proposals.\n", otherID, CommandMatches)
}

// newOrchestrator assembles the conversation pipeline. Extraction is wired
// only when it is enabled and the user falls inside the rollout; other
// sessions still run, with canned replies and no signal extraction.
func newOrchestrator(ctx context.Context, config *Config, st *store.Store, userID string, logger *zap.Logger) *conversation.Orchestrator {
	if config.Extraction == nil || !config.Extraction.Enabled {
		logger.Info("running without extraction", zap.String("reason", "extraction disabled in config"))
		return conversation.New(st, nil, nil, logger)
	}

	pct := 100
	if config.Rollout != nil && config.Rollout.ConversationalExtraction != nil {
		pct = *config.Rollout.ConversationalExtraction
	}

	if !conversation.InRollout(userID, pct) {
		logger.Info("running without extraction",
			zap.String("reason", "user outside the conversational extraction rollout"),
			zap.Int("rollout_percent", pct),
		)
		return conversation.New(st, nil, nil, logger)
	}

	generator, extractor, err := newGemini(ctx, config.Extraction, logger)
	if err != nil {
		logger.Fatal("building the gemini extractor",
			zap.Error(err),
			zap.String("hint", "set extraction.gemini.api-key-file or GEMINI_API_KEY_FILE"),
		)
	}

	return conversation.New(st, extractor, generator, logger)
}

func newGemini(ctx context.Context, cfg *ExtractionConfig, base *zap.Logger) (*gemini.Generator, *gemini.Extractor, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported extraction provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, nil, errors.New("gemini configuration is required when extraction is enabled")
	}

	apiKeyFile := strings.TrimSpace(cfg.Gemini.APIKeyFile)
	if apiKeyFile == "" {
		apiKeyFile = strings.TrimSpace(viper.GetString("extraction.gemini.api-key-file"))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  apiKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, nil, err
	}

	extLogger := logger.WithExtractionFields(base, "gemini", cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries,
		extLogger.With(zap.Int("retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, nil, err
	}

	return generator, gemini.NewExtractor(generator, extLogger, cfg.Gemini.MaxLogLength), nil
}

func openStore(ctx context.Context, config *Config, logger *zap.Logger) *store.Store {
	dsn, err := resolveDSN(config)
	if err != nil {
		logger.Fatal(
			"loading database url",
			zap.Error(err),
			zap.String("hint", "set database.url, JODI_DATABASE_URL or JODI_DATABASE_URL_FILE"),
		)
	}

	st, err := store.Open(ctx, dsn, logger)
	if err != nil {
		logger.Fatal("connecting to the database", zap.Error(err))
	}

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("ensuring database schema", zap.Error(err))
	}

	return st
}

func resolveDSN(config *Config) (string, error) {
	if config == nil || config.Database == nil {
		return "", errors.New("database configuration is required")
	}

	urlFile := strings.TrimSpace(config.Database.URLFile)
	if urlFile == "" {
		urlFile = strings.TrimSpace(viper.GetString("database.url-file"))
	}

	return secrets.Load(secrets.Source{
		Name:  "database url",
		File:  urlFile,
		Env:   "JODI_DATABASE_URL",
		Value: config.Database.URL,
	})
}
