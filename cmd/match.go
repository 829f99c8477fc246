package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nvsudo/jodi/internal/matching"
	"github.com/nvsudo/jodi/internal/profile"
	"github.com/nvsudo/jodi/internal/screening"
	"github.com/nvsudo/jodi/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptSave          = "Save proposed matches"
	PromptNo            = "No"
	PromptReportByCity  = "Report by city"
	PromptResultsToFile = "Dump candidates to file"
)

var errExit = errors.New("exit requested")

var matchPrompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptSave, PromptNo, PromptReportByCity, PromptResultsToFile},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Search and score match candidates for a user",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("user", "u", "", "user id to search matches for")
	matchCmd.Flags().Float64("min-score", 0, "minimum total score for a candidate to be kept")
	matchCmd.Flags().Int("limit", 0, "maximum number of matches to return")
	matchCmd.Flags().StringSlice("exclude", nil, "user ids to leave out of the search")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "save proposed matches without asking for confirmation")

	viper.BindPFlag("matching.min-score", matchCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("matching.limit", matchCmd.Flags().Lookup("limit"))
}

// match is the match search command: screen the active pool, score what
// survives and walk the proposals through the action prompt.
func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := bootstrap()

	userID := strings.TrimSpace(cmd.Flag("user").Value.String())
	if userID == "" {
		logger.Fatal("user id is required", zap.String("hint", "pass --user with a stable identifier"))
	}

	st := openStore(ctx, config, logger)
	defer st.Close()

	seeker, err := st.GetProfile(ctx, userID)
	if err != nil {
		logger.Fatal("loading seeker profile", zap.Error(err))
	}

	if seeker == nil {
		logger.Fatal("seeker profile not found",
			zap.String("user_id", userID),
			zap.String("hint", "build the profile first with the run command"),
		)
	}

	mvp, err := st.CheckMVPActivation(ctx, userID)
	if err != nil {
		logger.Fatal("checking profile activation", zap.Error(err))
	}

	if !mvp.MeetsMVP {
		logger.Warn("seeker profile is below the activation bar, results may be thin",
			zap.Strings("blocked_reasons", mvp.BlockedReasons),
		)
	}

	logger.Info("starting the match search", zap.String("user_id", userID))

	candidates, err := st.GetActiveProfiles(ctx)
	if err != nil {
		logger.Fatal("loading active profiles", zap.Error(err))
	}

	if candidates.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no active profiles found"))
		return
	}

	screened, err := screenCandidates(ctx, cmd, config, st, seeker, candidates, logger)
	if err != nil {
		logger.Fatal("screening failed", zap.Error(err))
	}

	if screened.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates left after screening"))
		return
	}

	scorer := matching.New(loadTables(config, logger))

	minScore, limit := matchBounds(config)
	results := scorer.FindMatches(seeker, screened, minScore, limit)

	if len(results) == 0 {
		logger.Info("exiting",
			zap.String("reason", "no candidates reached the score floor"),
			zap.Float64("min_score", minScore),
		)
		return
	}

	printResults(userID, results)

	auto := cmd.Flag("auto-approve").Value.String() == "true"

	action := PromptSave
	for {
		var err error
		if !auto {
			_, action, err = matchPrompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		logger.Info("current list of matches", zap.Int("count", len(results)))

		if err := handleMatchAction(ctx, action, st, logger, userID, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if auto {
			return
		}
	}
}

func handleMatchAction(ctx context.Context, action string, st *store.Store, logger *zap.Logger, userID string, results []matching.Result) error {
	switch action {
	case PromptSave:
		return saveMatches(ctx, st, logger, userID, results)
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReportByCity:
		pretty, _ := json.MarshalIndent(resultProfiles(results).ReportByCity(), "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", len(results)))
		return nil
	case PromptResultsToFile:
		filename, err := resultProfiles(results).DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// resultProfiles reshapes scored results into the collection the report
// and dump helpers work on.
func resultProfiles(results []matching.Result) *profile.Profiles {
	profiles := &profile.Profiles{Items: make([]*profile.Profile, 0, len(results))}
	for _, result := range results {
		profiles.Items = append(profiles.Items, result.Candidate)
	}
	return profiles
}

func saveMatches(ctx context.Context, st *store.Store, logger *zap.Logger, userID string, results []matching.Result) error {
	for _, result := range results {
		saved, err := st.SaveMatch(ctx, userID, result.Candidate.ID, result.Score, result.Breakdown)
		if err != nil {
			return err
		}

		logger.Info("match proposed",
			zap.Int64("match_id", saved.ID),
			zap.String("candidate_id", result.Candidate.ID),
			zap.Float64("score", result.Score),
		)
	}

	logger.Info("matches saved", zap.Int("count", len(results)))
	return nil
}

// screenCandidates runs the pre-scoring screen: inactive, suppressed,
// dealbreaker, hard-filter and already-matched candidates drop out before
// any pair is scored.
func screenCandidates(ctx context.Context, cmd *cobra.Command, config *Config, st *store.Store, seeker *profile.Profile, candidates *profile.Profiles, logger *zap.Logger) (*profile.Profiles, error) {
	steps := []screening.Filter{
		screening.NewActiveOnly(),
		screening.NewExcluded(),
		screening.NewDealbreakers(),
		screening.NewHardFilters(),
		screening.NewAlreadyMatched(),
	}

	if config.Screening != nil && config.Screening.DealbreakersEnabled != nil && !*config.Screening.DealbreakersEnabled {
		screening.DisableByName(steps, "dealbreakers", "disabled in config")
	}

	excluded, err := cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return nil, err
	}

	cfg := &screening.Config{
		Seeker:   seeker,
		Excluded: excluded,
	}

	return screening.Run(ctx, cfg, screening.Deps{Store: st, Logger: logger}, steps, candidates)
}

// loadTables picks the scorer lookup tables: the configured JSON file when
// given, built-in defaults otherwise.
func loadTables(config *Config, logger *zap.Logger) *matching.Tables {
	if config.Matching == nil || strings.TrimSpace(config.Matching.TablesFile) == "" {
		return matching.DefaultTables()
	}

	tables, err := matching.LoadTablesFromFile(config.Matching.TablesFile)
	if err != nil {
		logger.Warn("falling back to built-in matching tables",
			zap.String("tables_file", config.Matching.TablesFile),
			zap.Error(err),
		)
	}

	return tables
}

func matchBounds(config *Config) (float64, int) {
	minScore := viper.GetFloat64("matching.min-score")
	if minScore <= 0 {
		minScore = matching.DefaultMinScore
	}

	limit := viper.GetInt("matching.limit")
	if limit <= 0 {
		limit = matching.DefaultLimit
	}

	return minScore, limit
}

func printResults(userID string, results []matching.Result) {
	fmt.Printf("Found %d match candidates for %s:\n", len(results), userID)

	for i, result := range results {
		candidate := result.Candidate

		label := candidate.Identity.FullName
		if label == "" {
			label = candidate.ID
		}

		location := candidate.Identity.Location()
		if location == "" {
			location = "location unknown"
		}

		fmt.Printf("%d. %s / %.1f points / %s\n", i+1, label, result.Score, location)
	}
}
