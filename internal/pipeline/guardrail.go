package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// piiPattern pairs a redaction type tag with its detector.
type piiPattern struct {
	kind string
	re   *regexp.Regexp
}

// piiPatterns match personal data that must never reach logs or the model.
// Order matters: SSN before phone, since an SSN also looks like digits.
var piiPatterns = []piiPattern{
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"EMAIL", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"PHONE", regexp.MustCompile(`\+?\d[\d\-\s]{8,}\d`)},
	{"ADDRESS", regexp.MustCompile(`(?i)\b\d{1,5}\s+[\w\s]{2,30}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Way|Court|Ct)\b`)},
}

// Guardrail sanitizes personal data and detects prompt injection. Layer one
// is a fixed regex set; layer two, only when layer one finds nothing and a
// fast-tier model is configured, asks the model for a verdict and fails open
// on any error so availability never hinges on the model.
type Guardrail struct {
	model     *ModelHandle
	injection []*regexp.Regexp
	maxChars  int
}

// NewGuardrail compiles the configured injection patterns. Invalid patterns
// are rejected at construction so a bad config fails fast.
func NewGuardrail(injectionPatterns []string, maxChars int, model *ModelHandle) (*Guardrail, error) {
	compiled := make([]*regexp.Regexp, 0, len(injectionPatterns))
	for _, p := range injectionPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "guardrail: compile injection pattern %q", p)
		}
		compiled = append(compiled, re)
	}
	if maxChars <= 0 {
		maxChars = 4096
	}
	return &Guardrail{model: model, injection: compiled, maxChars: maxChars}, nil
}

func (g *Guardrail) Name() string { return StageGuardrail }

// CheckInjection reports whether text matches any known injection phrasing.
// Exposed standalone so side channels (draft instructions) get the same
// screen as pipeline input.
func (g *Guardrail) CheckInjection(text string) bool {
	for _, re := range g.injection {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// sanitize replaces PII matches with typed redaction markers.
func sanitize(text string) (string, int) {
	count := 0
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllStringFunc(text, func(string) string {
			count++
			return "[REDACTED_" + p.kind + "]"
		})
	}
	return text, count
}

// modelVerdict asks the fast tier whether text is unsafe. Fails open: the
// regex layer is the safety floor, so any model fault counts as safe.
func (g *Guardrail) modelVerdict(ctx context.Context, text string, log *zap.Logger) (bool, int) {
	capped := truncateRunes(text, g.maxChars)
	verdict, usage, err := g.model.Invoke(ctx, guardrailSystemPrompt, capped)
	tokens := int(usage.InputTokens + usage.OutputTokens)
	if err != nil {
		log.Warn("guardrail: model check failed, treating as safe", zap.Error(err))
		return false, tokens
	}
	var parsed struct {
		Unsafe bool `json:"unsafe"`
	}
	if parseErr := decodeModelJSON(verdict, &parsed); parseErr != nil {
		log.Warn("guardrail: unparseable model verdict, treating as safe",
			zap.String("verdict_preview", preview(verdict)),
		)
		return false, tokens
	}
	return parsed.Unsafe, tokens
}

// Screen runs the full check over side-channel text such as caller-supplied
// draft instructions: PII sanitized, injection regexes, then the model layer
// when configured. Returns the sanitized text and the unsafe verdict.
func (g *Guardrail) Screen(ctx context.Context, text string) (string, bool) {
	sanitized, _ := sanitize(text)
	if g.CheckInjection(text) {
		return sanitized, true
	}
	if g.model != nil {
		unsafe, _ := g.modelVerdict(ctx, sanitized, zap.L())
		return sanitized, unsafe
	}
	return sanitized, false
}

func (g *Guardrail) Run(ctx context.Context, st *State) error {
	start := time.Now()

	sanitized, piiCount := sanitize(st.RawInput)
	unsafe := g.CheckInjection(st.RawInput)
	tokens := 0

	// Layer two: model verdict, only when the regex layer found nothing.
	if !unsafe && g.model != nil {
		log := zap.L().With(zap.String("interaction_id", st.InteractionID))
		unsafe, tokens = g.modelVerdict(ctx, sanitized, log)
	}

	st.SanitizedText = sanitized
	st.PIIItemsFound = piiCount
	st.PromptInjectionDetected = unsafe

	detail := fmt.Sprintf("PII items redacted: %d", piiCount)
	if unsafe {
		detail += " | PROMPT INJECTION DETECTED"
	}
	st.AppendLog(StageGuardrail, model.StepCompleted, detail, start, tokens)
	return nil
}

// preview truncates model output for log fields.
func preview(s string) string {
	s = strings.TrimSpace(s)
	return truncateRunes(s, 200)
}

// truncateRunes caps s at max bytes without splitting a multi-byte rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
