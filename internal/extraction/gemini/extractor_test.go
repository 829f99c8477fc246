package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nvsudo/jodi/internal/extraction"
	"go.uber.org/zap"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestExtractorExtract(t *testing.T) {
	response := `{
		"hard_filters": {"city": "Sydney", "occupation": "software engineer"},
		"signals": {
			"lifestyle": {
				"diet_food_culture": {"value": "vegetarian", "confidence": 1.0, "source": "explicit"},
				"travel_frequency": {"value": "often", "confidence": 0.5, "source": "inferred", "reasoning": "mentions airports"}
			},
			"values": {
				"family_values": {"value": "close-knit", "confidence": 0.85, "source": "inferred", "reasoning": "weekly family dinners"}
			}
		},
		"preferences": {
			"hard_filters": {"age_min": 26, "age_max": 34, "gender_preference": ["Female"]},
			"dealbreakers": ["smoking"]
		},
		"tier": 2,
		"open_ended": true
	}`

	stub := &stubGenerator{response: response}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	history := []extraction.Turn{
		{Role: "assistant", Content: "Tell me about yourself"},
		{Role: "user", Content: "Happy to!"},
	}
	snapshot := extraction.ProfileSnapshot{
		Demographics: map[string]any{"full_name": "Raj"},
	}

	result, err := extractor.Extract(context.Background(), "I'm a vegetarian software engineer in Sydney", history, snapshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HardFilters["city"] != "Sydney" {
		t.Fatalf("expected city hard filter, got %v", result.HardFilters)
	}

	lifestyle, ok := result.Signals["lifestyle"]
	if !ok {
		t.Fatalf("expected lifestyle signals to survive")
	}

	if _, ok := lifestyle["diet_food_culture"]; !ok {
		t.Fatalf("expected diet_food_culture signal to be kept")
	}

	if _, ok := lifestyle["travel_frequency"]; ok {
		t.Fatalf("expected low-confidence travel_frequency signal to be dropped")
	}

	if result.SignalCount() != 2 {
		t.Fatalf("expected 2 signals after filtering, got %d", result.SignalCount())
	}

	if result.Preferences == nil || result.Preferences.HardFilters == nil {
		t.Fatalf("expected partner hard filters to be decoded")
	}

	if result.Preferences.HardFilters.AgeMin != 26 || result.Preferences.HardFilters.AgeMax != 34 {
		t.Fatalf("unexpected partner age range: %+v", result.Preferences.HardFilters)
	}

	if len(result.Preferences.Dealbreakers) != 1 || result.Preferences.Dealbreakers[0] != "smoking" {
		t.Fatalf("unexpected dealbreakers: %v", result.Preferences.Dealbreakers)
	}

	if result.Tier != 2 {
		t.Fatalf("expected tier 2, got %d", result.Tier)
	}

	if !result.OpenEnded {
		t.Fatalf("expected open_ended to be true")
	}

	if result.Raw != response {
		t.Fatalf("expected raw response to be preserved")
	}

	if !strings.Contains(stub.lastPrompt, `User said: "I'm a vegetarian software engineer in Sydney"`) {
		t.Fatalf("expected user message in prompt")
	}

	if !strings.Contains(stub.lastPrompt, "assistant: Tell me about yourself") {
		t.Fatalf("expected history in prompt")
	}

	if !strings.Contains(stub.lastPrompt, `"full_name": "Raj"`) {
		t.Fatalf("expected profile snapshot in prompt")
	}
}

type stubCachingGenerator struct {
	stubGenerator
	cacheName   string
	cacheErr    error
	ensureCalls int
	cachedCalls int
	lastPayload string
	lastCache   string
}

func (s *stubCachingGenerator) EnsureProfileCache(_ context.Context, _, _, payload string) (string, error) {
	s.ensureCalls++
	s.lastPayload = payload
	if s.cacheErr != nil {
		return "", s.cacheErr
	}
	return s.cacheName, nil
}

func (s *stubCachingGenerator) GenerateContentWithCache(_ context.Context, prompt, cacheName string) (string, error) {
	s.cachedCalls++
	s.lastCache = cacheName
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractorUsesProfileCache(t *testing.T) {
	stub := &stubCachingGenerator{
		stubGenerator: stubGenerator{response: "{}"},
		cacheName:     "caches/abc123",
	}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	snapshot := extraction.ProfileSnapshot{
		UserID:       "u1",
		Demographics: map[string]any{"full_name": "Raj"},
	}

	if _, err := extractor.Extract(context.Background(), "hi there", nil, snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.ensureCalls != 1 || stub.cachedCalls != 1 {
		t.Fatalf("expected cached generation, got ensure=%d cached=%d", stub.ensureCalls, stub.cachedCalls)
	}

	if stub.lastCache != "caches/abc123" {
		t.Fatalf("unexpected cache name: %s", stub.lastCache)
	}

	if !strings.Contains(stub.lastPayload, `"full_name": "Raj"`) {
		t.Fatalf("expected snapshot in cache payload")
	}

	if strings.Contains(stub.lastPrompt, `"full_name": "Raj"`) {
		t.Fatalf("expected snapshot to be omitted from prompt when cached")
	}

	if !strings.Contains(stub.lastPrompt, "(provided as cached content)") {
		t.Fatalf("expected cached content marker in prompt")
	}
}

func TestExtractorFallsBackWhenCacheUnavailable(t *testing.T) {
	stub := &stubCachingGenerator{
		stubGenerator: stubGenerator{response: "{}"},
		cacheErr:      errors.New("payload too small"),
	}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	snapshot := extraction.ProfileSnapshot{
		UserID:       "u1",
		Demographics: map[string]any{"full_name": "Raj"},
	}

	if _, err := extractor.Extract(context.Background(), "hi there", nil, snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.cachedCalls != 0 {
		t.Fatalf("expected plain generation after cache failure")
	}

	if !strings.Contains(stub.lastPrompt, `"full_name": "Raj"`) {
		t.Fatalf("expected snapshot embedded in prompt on fallback")
	}
}

func TestExtractorDropsUnknownCategories(t *testing.T) {
	stub := &stubGenerator{response: `{
		"signals": {
			"astrology": {
				"sun_sign": {"value": "leo", "confidence": 0.9, "source": "inferred"}
			},
			"personality": {
				"social_energy": {"value": "extroverted", "confidence": 0.9, "source": "inferred"}
			}
		},
		"tier": 3
	}`}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	result, err := extractor.Extract(context.Background(), "I light up at big parties", nil, extraction.ProfileSnapshot{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := result.Signals["astrology"]; ok {
		t.Fatalf("expected unknown category to be dropped")
	}

	if _, ok := result.Signals["personality"]; !ok {
		t.Fatalf("expected personality signals to be kept")
	}
}

func TestExtractorMalformedResponse(t *testing.T) {
	t.Parallel()

	longMessage := strings.TrimSpace(strings.Repeat("word ", 25))

	cases := []struct {
		name      string
		message   string
		openEnded bool
	}{
		{name: "short message", message: "hello", openEnded: false},
		{name: "long message", message: longMessage, openEnded: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubGenerator{response: "Sorry, I cannot answer that."}
			extractor := NewExtractor(stub, zap.NewNop(), 0)

			result, err := extractor.Extract(context.Background(), tc.message, nil, extraction.ProfileSnapshot{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !result.Empty() {
				t.Fatalf("expected empty result, got %+v", result)
			}

			if result.Tier != 1 {
				t.Fatalf("expected tier to default to 1, got %d", result.Tier)
			}

			if result.OpenEnded != tc.openEnded {
				t.Fatalf("expected open_ended %v, got %v", tc.openEnded, result.OpenEnded)
			}
		})
	}
}

func TestExtractorGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exceeded")}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	if _, err := extractor.Extract(context.Background(), "hi", nil, extraction.ProfileSnapshot{}); err == nil {
		t.Fatalf("expected generator error to propagate")
	}
}

func TestExtractorEmptyMessage(t *testing.T) {
	stub := &stubGenerator{response: "{}"}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	if _, err := extractor.Extract(context.Background(), "   ", nil, extraction.ProfileSnapshot{}); err == nil {
		t.Fatalf("expected error for blank message")
	}
}

func TestExtractorHistoryWindow(t *testing.T) {
	stub := &stubGenerator{response: "{}"}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	history := make([]extraction.Turn, 0, 8)
	for i := 0; i < 8; i++ {
		history = append(history, extraction.Turn{Role: "user", Content: fmt.Sprintf("turn-%d", i)})
	}

	if _, err := extractor.Extract(context.Background(), "hi", history, extraction.ProfileSnapshot{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(stub.lastPrompt, "turn-1") {
		t.Fatalf("expected old turns to be trimmed from prompt")
	}

	if !strings.Contains(stub.lastPrompt, "turn-2") || !strings.Contains(stub.lastPrompt, "turn-7") {
		t.Fatalf("expected recent turns in prompt")
	}
}

func TestParseResponseHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"hard_filters\": {\"city\": \"Melbourne\"}, \"signals\": {\"values\": {\"ambition_level\": {\"value\": \"high\", \"confidence\": \"0.9\", \"source\": \"inferred\"}}}, \"tier\": \"2\"}\n```"

	result, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HardFilters["city"] != "Melbourne" {
		t.Fatalf("expected city to be parsed, got %v", result.HardFilters)
	}

	sig, ok := result.Signals["values"]["ambition_level"]
	if !ok {
		t.Fatalf("expected ambition_level signal")
	}

	if sig.Confidence != 0.9 {
		t.Fatalf("expected string confidence to be coerced, got %v", sig.Confidence)
	}

	if result.Tier != 2 {
		t.Fatalf("expected string tier to be coerced, got %d", result.Tier)
	}
}
