package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/nvsudo/jodi/internal/extraction"
	"github.com/nvsudo/jodi/internal/signal"
	"github.com/nvsudo/jodi/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// cachingGenerator is satisfied by generators that can park the profile
// snapshot in a server-side cache between turns.
type cachingGenerator interface {
	contentGenerator
	EnsureProfileCache(ctx context.Context, userID, displayName, payload string) (string, error)
	GenerateContentWithCache(ctx context.Context, prompt, cacheName string) (string, error)
}

// Extractor analyzes user messages with Gemini and returns structured
// profile data with confidence scores.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200

	// historyWindow bounds how many conversation turns go into the prompt.
	historyWindow = 6

	// minOpenEndedWords mirrors the open_ended heuristic used when the model
	// response cannot be parsed.
	minOpenEndedWords = 20

	// cachedProfileMarker replaces the snapshot in the prompt when the real
	// payload travels as cached content.
	cachedProfileMarker = "(provided as cached content)"
)

func NewExtractor(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Extractor) Extract(ctx context.Context, message string, history []extraction.Turn, snapshot extraction.ProfileSnapshot) (*extraction.Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}

	profileJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile snapshot: %w", err)
	}

	profile := string(profileJSON)
	cacheName := ""
	if cacher, ok := e.generator.(cachingGenerator); ok && snapshot.UserID != "" {
		name, err := cacher.EnsureProfileCache(ctx, snapshot.UserID, "profile-"+snapshot.UserID, profile)
		if err != nil {
			e.logger.Debug("profile cache unavailable, embedding snapshot in prompt", zap.Error(err))
		} else {
			cacheName = name
			profile = cachedProfileMarker
		}
	}

	prompt := buildPrompt(message, formatHistory(history), profile)

	e.logger.Debug("gemini extraction request",
		zap.Int("history_turns", len(history)),
		zap.Bool("cached_profile", cacheName != ""),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generate(ctx, prompt, cacheName)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	result, err := parseResponse(raw)
	if err != nil {
		// A malformed reply costs one turn of learning, not the session.
		e.logger.Warn("unparseable extraction response",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
		)
		result = &extraction.Result{
			Tier:      1,
			OpenEnded: len(strings.Fields(message)) > minOpenEndedWords,
		}
	}

	e.dropUnusableSignals(result)

	result.Raw = raw
	return result, nil
}

func (e *Extractor) generate(ctx context.Context, prompt, cacheName string) (string, error) {
	if cacheName != "" {
		cacher, ok := e.generator.(cachingGenerator)
		if ok {
			return cacher.GenerateContentWithCache(ctx, prompt, cacheName)
		}
	}
	return e.generator.GenerateContent(ctx, prompt)
}

func (e *Extractor) dropUnusableSignals(result *extraction.Result) {
	for category, batch := range result.Signals {
		if !signal.ValidCategory(category) {
			e.logger.Warn("dropping signals in unknown category",
				zap.String("category", category),
				zap.Int("count", len(batch)),
			)
			delete(result.Signals, category)
			continue
		}

		kept := signal.FilterByConfidence(batch, signal.StoreMinimum)
		if len(kept) == 0 {
			delete(result.Signals, category)
			continue
		}
		result.Signals[category] = kept
	}
}

func buildPrompt(message, history, profileJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "User said: \"{{USER_MESSAGE}}\"\n\nRecent conversation:\n{{HISTORY}}\n\nCurrent profile:\n{{PROFILE_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{USER_MESSAGE}}", message)
	prompt = strings.ReplaceAll(prompt, "{{HISTORY}}", history)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_JSON}}", profileJSON)
	return prompt
}

func formatHistory(history []extraction.Turn) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	if len(history) == 0 {
		return "(no prior messages)"
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*extraction.Result, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = extractJSON(cleaned)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	result := &extraction.Result{
		HardFilters: coerceObject(data["hard_filters"]),
		Signals:     parseSignals(data["signals"]),
		OpenEnded:   coerceBool(data["open_ended"]),
	}

	tier := coerceFloat(data["tier"])
	if math.IsNaN(tier) || tier < 1 {
		tier = 1
	}
	result.Tier = int(tier)

	if prefs := coerceObject(data["preferences"]); len(prefs) > 0 {
		decoded := &extraction.Preferences{}
		if err := decodePreferences(prefs, decoded); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
		result.Preferences = decoded
	}

	return result, nil
}

func parseSignals(v any) map[string]signal.Batch {
	categories := coerceObject(v)
	if len(categories) == 0 {
		return nil
	}

	out := make(map[string]signal.Batch, len(categories))
	for category, fields := range categories {
		fieldMap := coerceObject(fields)
		if len(fieldMap) == 0 {
			continue
		}

		batch := make(signal.Batch, len(fieldMap))
		for field, entry := range fieldMap {
			entryMap := coerceObject(entry)
			if entryMap == nil {
				continue
			}

			confidence := coerceFloat(entryMap["confidence"])
			if math.IsNaN(confidence) {
				confidence = 0
			}

			batch[field] = signal.Signal{
				Value:      entryMap["value"],
				Confidence: confidence,
				Source:     coerceString(entryMap["source"]),
				Reasoning:  coerceString(entryMap["reasoning"]),
			}
		}

		if len(batch) > 0 {
			out[category] = batch
		}
	}
	return out
}

func decodePreferences(input map[string]any, out *extraction.Preferences) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceObject(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
