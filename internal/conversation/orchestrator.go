// Package conversation orchestrates a profile-building chat turn: extract
// structured data from the user's message, route it into storage, advance
// tier progress and produce the bot's next message.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/extraction"
	"github.com/nvsudo/jodi/internal/profile"
	"github.com/nvsudo/jodi/internal/store"
)

const (
	// historyWindow bounds how many recent turns feed the reply prompt.
	historyWindow = 4

	// openEndedWordMinimum marks a message as substantive when extraction
	// gives no verdict.
	openEndedWordMinimum = 20

	// responseStorageLimit caps stored open-ended responses.
	responseStorageLimit = 500

	fallbackMessage = "Tell me more about that! I want to understand you better."
)

const welcomeMessage = "Namaste! 🙏\n\n" +
	"I'm Jodi, your matchmaking companion. Think of me as a friend who's really good " +
	"at connecting people.\n\n" +
	"We'll have a few conversations over the next few days — nothing rushed. " +
	"I'll get to know you, understand what matters to you, and when I have a clear picture, " +
	"I'll start introducing you to people I think you'd genuinely connect with.\n\n" +
	"Let's start simple: tell me about yourself! Who are you, what do you do, where are you from?"

// categoryTiers maps signal categories to the tier they advance.
var categoryTiers = map[string]string{
	"lifestyle":          "tier2",
	"values":             "tier2",
	"relationship_style": "tier2",
	"personality":        "tier3",
	"family_background":  "tier3",
	"media_signals":      "tier3",
	"match_learnings":    "tier4",
}

// replyGenerator produces the bot's next conversational message.
type replyGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Orchestrator drives one conversation turn end to end.
type Orchestrator struct {
	store     *store.Store
	extractor extraction.Extractor
	generator replyGenerator
	logger    *zap.Logger
}

// New builds an Orchestrator. The extractor may be nil; messages are then
// logged and answered without signal extraction. The generator may be nil;
// replies then fall back to canned messages.
func New(st *store.Store, extractor extraction.Extractor, generator replyGenerator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:     st,
		extractor: extractor,
		generator: generator,
		logger:    logger,
	}
}

// Reply is the outcome of one handled message.
type Reply struct {
	Message      string
	Extracted    *extraction.Result
	TierProgress *store.TierProgress
	MVP          store.MVPStatus
	Completeness float64
}

// WelcomeMessage is the first thing the bot says to a new user.
func WelcomeMessage() string {
	return welcomeMessage
}

// StartSession bumps the user's session counters. Call once per conversation.
func (o *Orchestrator) StartSession(ctx context.Context, userID string) (*store.TierProgress, error) {
	return o.store.UpdateTierProgress(ctx, userID, nil, nil, true)
}

// HandleMessage processes one user message: extract, route to storage,
// advance tier progress, check activation and produce the next message.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, message string, history []extraction.Turn) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is empty")
	}
	if err := o.store.CreateUser(ctx, userID); err != nil {
		return nil, err
	}

	snapshot := o.buildSnapshot(ctx, userID)

	result, quick := quickReplyResult(message)
	if !quick {
		result = &extraction.Result{OpenEnded: wordCount(message) > openEndedWordMinimum}
		if o.extractor != nil {
			extracted, err := o.extractor.Extract(ctx, message, history, snapshot)
			switch {
			case err != nil:
				// The conversation continues even when extraction is down; the
				// message is still logged and answered.
				o.logger.Warn("extraction failed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
			case extracted != nil:
				result = extracted
			}
		}
	}

	correction := o.applyDOBRules(result, message, snapshot)
	normalizeCategoricalFilters(result)

	if err := o.routeResult(ctx, userID, result); err != nil {
		return nil, err
	}

	if err := o.store.RecordInteraction(ctx, userID, store.DirectionInbound, message, result); err != nil {
		o.logger.Warn("recording inbound interaction failed", zap.String("user_id", userID), zap.Error(err))
	}

	progress, err := o.updateProgress(ctx, userID, message, result)
	if err != nil {
		return nil, err
	}

	mvp := store.MVPStatus{MeetsMVP: progress.MVPAchieved, BlockedReasons: progress.MVPBlockedReasons}

	completeness, err := o.store.Completeness(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("compute completeness: %w", err)
	}

	reply := correction
	if reply == "" {
		reply = o.nextMessage(ctx, message, history, progress, mvp, completeness)
	}

	if err := o.store.RecordInteraction(ctx, userID, store.DirectionOutbound, reply, nil); err != nil {
		o.logger.Warn("recording outbound interaction failed", zap.String("user_id", userID), zap.Error(err))
	}

	o.logger.Info("message handled",
		zap.String("user_id", userID),
		zap.Int("hard_filters", len(result.HardFilters)),
		zap.Int("signals", result.SignalCount()),
		zap.Float64("completeness", completeness),
		zap.Bool("mvp_achieved", mvp.MeetsMVP),
	)

	return &Reply{
		Message:      reply,
		Extracted:    result,
		TierProgress: progress,
		MVP:          mvp,
		Completeness: completeness,
	}, nil
}

// buildSnapshot assembles what is already known about the user. Lookups are
// best-effort: extraction works from a partial snapshot rather than failing
// the turn.
func (o *Orchestrator) buildSnapshot(ctx context.Context, userID string) extraction.ProfileSnapshot {
	snapshot := extraction.ProfileSnapshot{UserID: userID}

	user, err := o.store.GetUser(ctx, userID)
	switch {
	case err != nil:
		o.logger.Warn("loading user for snapshot failed", zap.String("user_id", userID), zap.Error(err))
	case user != nil:
		snapshot.Demographics = demographicsMap(user)
	}

	signals, err := o.store.GetSignals(ctx, userID)
	if err != nil {
		o.logger.Warn("loading signals for snapshot failed", zap.String("user_id", userID), zap.Error(err))
	} else if len(signals) > 0 {
		snapshot.Signals = signals
	}

	progress, err := o.store.GetTierProgress(ctx, userID)
	switch {
	case err != nil:
		o.logger.Warn("loading tier progress for snapshot failed", zap.String("user_id", userID), zap.Error(err))
	case progress != nil:
		snapshot.TierProgress = map[string]any{
			"tier1_completion": progress.Tier1Completion,
			"tier2_completion": progress.Tier2Completion,
			"tier3_completion": progress.Tier3Completion,
			"tier4_completion": progress.Tier4Completion,
			"mvp_achieved":     progress.MVPAchieved,
		}
	}

	return snapshot
}

func demographicsMap(user *store.User) map[string]any {
	fields := map[string]string{
		"full_name":             user.FullName,
		"date_of_birth":         user.DateOfBirth,
		"gender_identity":       user.GenderIdentity,
		"sexual_orientation":    user.SexualOrientation,
		"city":                  user.City,
		"country":               user.Country,
		"native_language":       user.NativeLanguage,
		"religion":              user.Religion,
		"children_intent":       user.ChildrenIntent,
		"marital_history":       user.MaritalHistory,
		"smoking":               user.Smoking,
		"drinking":              user.Drinking,
		"dietary_restrictions":  user.DietaryRestrictions,
		"relationship_intent":   user.RelationshipIntent,
		"relationship_timeline": user.RelationshipTimeline,
		"occupation":            user.Occupation,
		"education_level":       user.EducationLevel,
		"caste_community":       user.CasteCommunity,
	}

	known := make(map[string]any, len(fields))
	for field, value := range fields {
		if value != "" {
			known[field] = value
		}
	}
	if len(known) == 0 {
		return nil
	}
	return known
}

// quickReplyResult turns a button-style "category:value" payload into an
// explicit result. Quick replies skip the model entirely: the user picked
// the value, so there is nothing to infer.
func quickReplyResult(message string) (*extraction.Result, bool) {
	field, value, ok := ParseQuickReply(message)
	if !ok || !IsCategorical(field) {
		return nil, false
	}

	return &extraction.Result{
		HardFilters: map[string]any{field: value},
		Tier:        1,
	}, true
}

// applyDOBRules validates an extracted date of birth and scans the raw
// message when extraction missed one and none is on file yet. An invalid
// date is dropped from the update and its validation message becomes the
// bot's reply.
func (o *Orchestrator) applyDOBRules(result *extraction.Result, message string, snapshot extraction.ProfileSnapshot) string {
	now := time.Now()

	if raw, ok := result.HardFilters["date_of_birth"]; ok {
		text, isString := raw.(string)
		if !isString {
			delete(result.HardFilters, "date_of_birth")
			return profile.ErrDOBUnparseable.Error()
		}

		dob, err := profile.ValidateDOB(text, now)
		if err != nil {
			delete(result.HardFilters, "date_of_birth")
			return err.Error()
		}
		result.HardFilters["date_of_birth"] = dob.Format(time.DateOnly)
		return ""
	}

	if _, known := snapshot.Demographics["date_of_birth"]; known {
		return ""
	}

	if dob, ok := profile.FindDOB(message, now); ok {
		if result.HardFilters == nil {
			result.HardFilters = map[string]any{}
		}
		result.HardFilters["date_of_birth"] = dob.Format(time.DateOnly)
	}
	return ""
}

// normalizeCategoricalFilters snaps extracted button-field values onto their
// catalog spelling so storage never drifts in casing.
func normalizeCategoricalFilters(result *extraction.Result) {
	for field, raw := range result.HardFilters {
		if !IsCategorical(field) {
			continue
		}
		if value, ok := raw.(string); ok {
			result.HardFilters[field] = NormalizeFieldValue(field, value)
		}
	}
}

func (o *Orchestrator) routeResult(ctx context.Context, userID string, result *extraction.Result) error {
	if len(result.HardFilters) > 0 {
		if err := o.store.UpdateHardFilters(ctx, userID, result.HardFilters); err != nil {
			return fmt.Errorf("store hard filters: %w", err)
		}
	}

	for category, batch := range result.Signals {
		if len(batch) == 0 {
			continue
		}
		if _, err := o.store.UpsertSignals(ctx, userID, category, batch); err != nil {
			return fmt.Errorf("store %s signals: %w", category, err)
		}
	}

	if result.Preferences != nil {
		if err := o.store.UpsertPreferences(ctx, userID, result.Preferences); err != nil {
			return fmt.Errorf("store preferences: %w", err)
		}
	}

	return nil
}

func (o *Orchestrator) updateProgress(ctx context.Context, userID, message string, result *extraction.Result) (*store.TierProgress, error) {
	completed := completedFields(result)

	var openEnded *store.OpenEndedResponse
	if result.OpenEnded {
		openEnded = &store.OpenEndedResponse{
			Response:         truncate(message, responseStorageLimit),
			SignalsExtracted: result.SignalCount(),
		}
	}

	progress, err := o.store.UpdateTierProgress(ctx, userID, completed, openEnded, false)
	if err != nil {
		return nil, fmt.Errorf("update tier progress: %w", err)
	}
	return progress, nil
}

// completedFields groups the turn's extracted fields by the tier they
// advance: hard filters are tier 1, signals follow their category.
func completedFields(result *extraction.Result) map[string][]string {
	completed := map[string][]string{}

	for field := range result.HardFilters {
		completed["tier1"] = append(completed["tier1"], field)
	}

	for category, batch := range result.Signals {
		tier, ok := categoryTiers[category]
		if !ok {
			continue
		}
		for field := range batch {
			completed[tier] = append(completed[tier], field)
		}
	}

	if len(completed) == 0 {
		return nil
	}
	return completed
}

func wordCount(message string) int {
	return len(strings.Fields(message))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
