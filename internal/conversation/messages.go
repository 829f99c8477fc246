package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/extraction"
	"github.com/nvsudo/jodi/internal/store"
)

const mvpMessage = "I feel like I have a good understanding of who you are now! " +
	"Your profile is %.0f%% complete. 🎉\n\n" +
	"Ready to see some matches? I've found a few people I think you'd connect with."

const basicsPrompt = `You're a warm matchmaker getting to know someone. They just said: "%s"

Recent conversation:
%s

Their profile is %.0f%% complete (Tier 1: THE BASICS).
Still need: %s

Generate a natural follow-up question to complete their basic profile.
Be conversational, not interrogative. ONE question only.

Focus on missing Tier 1 fields:
- Identity (age, location, occupation)
- Religious/cultural background
- Relationship intent and timeline
- Life situation (children, marital history)
- Lifestyle basics (smoking, drinking, diet)

Your question:`

const lifestylePrompt = `You're a matchmaker who knows the basics about this person. Now going deeper.

They just said: "%s"

Recent conversation:
%s

Their profile: %.0f%% Tier 1 (complete), %.0f%% Tier 2.
Need 70%% Tier 2 to start matching.

Generate a warm, curious question to understand:
- Lifestyle patterns (work, fitness, social life, weekends)
- Values (family, ambition, political/cultural views)
- What they're looking for in a partner

Be natural. ONE question. No lists.

Your question:`

const depthPrompt = `You're a matchmaker deepening your understanding of this person.

They said: "%s"

Recent conversation:
%s

Profile: %.0f%% complete. Almost ready to match!

Generate a thoughtful follow-up to understand:
- Relationship history and what they learned
- Family dynamics and expectations
- What excites them about meeting someone

Be warm and curious. ONE question.

Your question:`

// nextMessage picks the reply strategy from profile progress: offer matches
// once activated, otherwise steer the conversation toward whatever tier is
// holding the profile back.
func (o *Orchestrator) nextMessage(ctx context.Context, message string, history []extraction.Turn, progress *store.TierProgress, mvp store.MVPStatus, completeness float64) string {
	if mvp.MeetsMVP {
		return fmt.Sprintf(mvpMessage, completeness)
	}

	recent := recentHistory(history, historyWindow)

	var prompt string
	switch {
	case progress.Tier1Completion < store.MVPTier1Minimum:
		stillNeed := "core demographics"
		if len(mvp.BlockedReasons) > 0 {
			stillNeed = mvp.BlockedReasons[0]
		}
		prompt = fmt.Sprintf(basicsPrompt, message, recent, progress.Tier1Completion, stillNeed)
	case progress.Tier2Completion < store.MVPTier2Minimum:
		prompt = fmt.Sprintf(lifestylePrompt, message, recent, progress.Tier1Completion, progress.Tier2Completion)
	default:
		prompt = fmt.Sprintf(depthPrompt, message, recent, completeness)
	}

	return o.generate(ctx, prompt)
}

func (o *Orchestrator) generate(ctx context.Context, prompt string) string {
	if o.generator == nil {
		return fallbackMessage
	}

	reply, err := o.generator.GenerateContent(ctx, prompt)
	if err != nil {
		o.logger.Warn("reply generation failed", zap.Error(err))
		return fallbackMessage
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fallbackMessage
	}
	return reply
}

func recentHistory(history []extraction.Turn, window int) string {
	if len(history) > window {
		history = history[len(history)-window:]
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(lines, "\n")
}

// ProgressSummary renders a user-facing view of profile completion.
func (o *Orchestrator) ProgressSummary(ctx context.Context, userID string) (string, error) {
	user, err := o.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return "Profile not started.", nil
	}

	completeness, err := o.store.Completeness(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("compute completeness: %w", err)
	}

	progress, err := o.store.GetTierProgress(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load tier progress: %w", err)
	}
	if progress == nil {
		return fmt.Sprintf("Your profile is %.0f%% complete. Let's keep building it!", completeness), nil
	}

	if progress.MVPAchieved {
		return fmt.Sprintf(
			"✅ Your profile is %.0f%% complete and ready to match!\n\n"+
				"**THE BASICS:** %.0f%%\n"+
				"**READY:** %.0f%%\n"+
				"**DEEP PROFILE:** %.0f%%",
			completeness, progress.Tier1Completion, progress.Tier2Completion, progress.Tier3Completion,
		), nil
	}

	blocked := progress.MVPBlockedReasons
	if len(blocked) > 3 {
		blocked = blocked[:3]
	}
	bullets := make([]string, 0, len(blocked))
	for _, reason := range blocked {
		bullets = append(bullets, fmt.Sprintf("  • %s", reason))
	}

	return fmt.Sprintf(
		"Your profile is %.0f%% complete.\n\n"+
			"**Progress:**\n"+
			"• THE BASICS: %.0f%%\n"+
			"• READY: %.0f%%\n"+
			"• DEEP PROFILE: %.0f%%\n\n"+
			"**To start matching:**\n%s",
		completeness, progress.Tier1Completion, progress.Tier2Completion, progress.Tier3Completion,
		strings.Join(bullets, "\n"),
	), nil
}
