package pipeline

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// langJSONRe pulls an embedded {"language": "..."} object out of replies that
// wrap the JSON in prose.
var langJSONRe = regexp.MustCompile(`\{[^{}]*"language"\s*:\s*"[^"]+"\s*[^{}]*\}`)

// LanguageDetector identifies the message language, restricted to a small
// allow-list. A model reply that cannot be parsed or names a language outside
// the list falls back to the heuristic, never to a hardcoded default; silently
// defaulting to English would degrade replies drafted in other languages.
type LanguageDetector struct {
	model   *ModelHandle
	allowed map[string]bool
	markers []*regexp.Regexp
}

// NewLanguageDetector compiles the Spanish marker patterns and records the
// allow-list.
func NewLanguageDetector(allowed []string, spanishMarkers []string, handle *ModelHandle) *LanguageDetector {
	allowSet := make(map[string]bool, len(allowed))
	for _, code := range allowed {
		allowSet[code] = true
	}
	compiled := make([]*regexp.Regexp, 0, len(spanishMarkers))
	for _, p := range spanishMarkers {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		} else {
			zap.L().Warn("language_detector: skipping invalid marker pattern",
				zap.String("pattern", p),
				zap.Error(err),
			)
		}
	}
	return &LanguageDetector{model: handle, allowed: allowSet, markers: compiled}
}

func (l *LanguageDetector) Name() string { return StageLanguageDetector }

// detectHeuristic counts Spanish marker hits. English is the only safe
// default: markers are positive evidence for non-default languages.
func (l *LanguageDetector) detectHeuristic(text string) string {
	lower := strings.ToLower(text)
	hits := 0
	for _, re := range l.markers {
		if re.MatchString(lower) {
			hits++
		}
	}
	if hits >= 2 && l.allowed["es"] {
		return "es"
	}
	return "en"
}

// normalize validates a candidate code: it must parse as a real language tag
// and sit in the allow-list. Returns "" when it doesn't.
func (l *LanguageDetector) normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	code = base.String()
	if !l.allowed[code] {
		return ""
	}
	return code
}

// parseModelReply tries, in order: strict JSON, embedded JSON, a bare quoted
// code. Returns "" when nothing usable is found.
func (l *LanguageDetector) parseModelReply(raw string) string {
	var parsed struct {
		Language string `json:"language"`
	}
	if err := decodeModelJSON(raw, &parsed); err == nil {
		if code := l.normalize(parsed.Language); code != "" {
			return code
		}
	}

	if m := langJSONRe.FindString(raw); m != "" {
		if err := json.Unmarshal([]byte(m), &parsed); err == nil {
			if code := l.normalize(parsed.Language); code != "" {
				return code
			}
		}
	}

	lower := strings.ToLower(strings.TrimSpace(raw))
	for code := range l.allowed {
		if strings.Contains(lower, `"`+code+`"`) || strings.Contains(lower, `'`+code+`'`) || strings.HasSuffix(lower, code) {
			return code
		}
	}
	return ""
}

func (l *LanguageDetector) Run(ctx context.Context, st *State) error {
	start := time.Now()
	text := st.Text()

	lang := ""
	source := "heuristic"
	tokens := 0

	if l.model != nil {
		reply, usage, err := l.model.Invoke(ctx, languageSystemPrompt, text)
		tokens = int(usage.InputTokens + usage.OutputTokens)
		if err != nil {
			zap.L().Warn("language_detector: model call failed, using heuristic",
				zap.String("interaction_id", st.InteractionID),
				zap.Error(err),
			)
		} else if lang = l.parseModelReply(reply); lang != "" {
			source = "llm"
		} else {
			zap.L().Warn("language_detector: unparseable model reply, using heuristic",
				zap.String("interaction_id", st.InteractionID),
				zap.String("reply_preview", preview(reply)),
			)
		}
	}

	if lang == "" {
		lang = l.detectHeuristic(text)
	}

	st.DetectedLanguage = lang
	st.AppendLog(StageLanguageDetector, model.StepCompleted, "Detected language: "+lang+" via "+source, start, tokens)
	return nil
}
