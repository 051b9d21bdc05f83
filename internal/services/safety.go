package services

import (
	"regexp"
	"strings"

	"github.com/yungbote/fincoach-backend/internal/logger"
)

// MaxUserMessageLength bounds what a chat turn may send to the language
// model.
const MaxUserMessageLength = 2000

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore previous instructions`),
	regexp.MustCompile(`(?i)disregard all prior`),
	regexp.MustCompile(`(?i)forget everything`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)new instructions:`),
	regexp.MustCompile(`(?i)system prompt:`),
}

var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill|suicide|self-harm|hurt yourself)\b`),
	regexp.MustCompile(`(?i)\b(illegal|fraud|scam|steal)\b`),
	regexp.MustCompile(`(?i)\b(guaranteed returns|get rich quick|insider)\b`),
}

// Topics the coach must never advise on. A bare mention is fine;
// advice-shaped phrasing is not.
var restrictedTopics = []string{
	"investment", "stock", "crypto", "bitcoin", "tax", "legal", "lawsuit", "bankruptcy",
}

var advicePrefixes = []string{
	"you should", "i recommend", "invest in", "buy",
}

const safetyFooter = `

SAFETY REMINDERS:
- Never provide specific investment, tax, or legal advice
- Do not make claims about guaranteed outcomes
- Keep tone supportive and non-judgmental
- If unsure, err on the side of caution
- Focus only on general budgeting awareness and financial literacy`

// SafetyGuard applies the prompt-side and output-side guardrails around
// every language-model call.
type SafetyGuard struct {
	log *logger.Logger
}

func NewSafetyGuard(baseLog *logger.Logger) *SafetyGuard {
	return &SafetyGuard{log: baseLog.With("service", "SafetyGuard")}
}

// SanitizeInput truncates oversized messages and scrubs prompt-injection
// phrasings before the message reaches the model.
func (g *SafetyGuard) SanitizeInput(message string) string {
	if message == "" {
		return ""
	}
	if len(message) > MaxUserMessageLength {
		g.log.Warn("User message truncated", "length", len(message))
		message = message[:MaxUserMessageLength] + "..."
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(message) {
			g.log.Warn("Potential prompt injection scrubbed", "pattern", pattern.String())
			message = pattern.ReplaceAllString(message, "[removed]")
		}
	}
	return strings.TrimSpace(message)
}

// CheckOutput inspects generated text for harmful content and
// restricted-topic advice. Returns false with a reason when the text must
// not be shown to the user.
func (g *SafetyGuard) CheckOutput(text string) (bool, string) {
	lower := strings.ToLower(text)

	for _, pattern := range harmfulPatterns {
		if pattern.MatchString(lower) {
			g.log.Warn("Harmful pattern detected in output", "pattern", pattern.String())
			return false, "output contained potentially harmful content"
		}
	}

	for _, topic := range restrictedTopics {
		for _, prefix := range advicePrefixes {
			pattern := regexp.MustCompile(regexp.QuoteMeta(prefix) + `.*` + regexp.QuoteMeta(topic))
			if pattern.MatchString(lower) {
				g.log.Warn("Restricted financial advice detected", "topic", topic)
				return false, "output contained advice on restricted topic: " + topic
			}
		}
	}
	return true, ""
}

// WithSafetyContext appends the safety reminders to a prompt.
func (g *SafetyGuard) WithSafetyContext(prompt string) string {
	return prompt + safetyFooter
}

// LogInteraction records an audit line for one model call.
func (g *SafetyGuard) LogInteraction(service string, success bool) {
	if success {
		g.log.Info("Model interaction", "caller", service, "status", "success")
		return
	}
	g.log.Warn("Model interaction", "caller", service, "status", "failure")
}
