package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/vkuzmin/jobpilot/internal/supervisor"
	"github.com/vkuzmin/jobpilot/internal/utils"
	"go.uber.org/zap"
)

//go:embed routing_prompt.md
var routingPromptTemplate string

const (
	finishOption     = "FINISH"
	defaultMaxLogLen = 200
	// historyEntryLimit caps how much of a single message is quoted into
	// the routing prompt.
	historyEntryLimit = 2000
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Router is the Gemini-backed decision oracle. It renders the conversation
// and the worker catalog into the routing prompt and parses the model's
// JSON answer into a routing decision. Timeouts and unparseable answers
// surface as the invalid decision sentinel, never as a panic or error.
type Router struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewRouter creates a router on top of the given content generator.
func NewRouter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLen
	}
	return &Router{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// Decide implements supervisor.Oracle.
func (r *Router) Decide(ctx context.Context, view supervisor.View, registry *supervisor.Registry) supervisor.Decision {
	prompt := buildRoutingPrompt(view, registry)

	r.logger.Debug("routing request",
		zap.Int("turn", view.Turn),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		r.logger.Warn("routing query failed", zap.Error(err))
		return supervisor.InvalidDecision(fmt.Sprintf("oracle call failed: %v", err))
	}

	r.logger.Debug("routing response",
		zap.Int("turn", view.Turn),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	return parseDecision(raw, registry)
}

func buildRoutingPrompt(view supervisor.View, registry *supervisor.Registry) string {
	options := append([]string{finishOption}, registry.Names()...)

	prompt := strings.ReplaceAll(routingPromptTemplate, "{{WORKERS}}", strings.TrimSpace(registry.Describe()))
	prompt = strings.ReplaceAll(prompt, "{{HISTORY}}", renderHistory(view))
	prompt = strings.ReplaceAll(prompt, "{{OPTIONS}}", strings.Join(options, ", "))
	return prompt
}

func renderHistory(view supervisor.View) string {
	var b strings.Builder
	for _, m := range view.Messages {
		author := string(m.Role)
		if m.Worker != "" {
			author = m.Worker
		}
		b.WriteString(fmt.Sprintf("[%s] %s\n", author, utils.TruncateForLog(m.Content, historyEntryLimit)))
	}
	return strings.TrimSpace(b.String())
}

// parseDecision turns the model output into a decision. It accepts the
// documented JSON shape and, failing that, a bare option name, since
// smaller models tend to skip the JSON wrapper.
func parseDecision(raw string, registry *supervisor.Registry) supervisor.Decision {
	cleaned := extractJSON(raw)

	var payload struct {
		Next      string `json:"next"`
		Terminate bool   `json:"terminate"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		return matchOption(firstNonEmpty(payload.Next, terminateName(payload.Terminate)), registry)
	}

	return matchOption(cleaned, registry)
}

func matchOption(choice string, registry *supervisor.Registry) supervisor.Decision {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return supervisor.InvalidDecision("empty routing answer")
	}

	if strings.EqualFold(choice, finishOption) {
		return supervisor.Finish()
	}

	for _, name := range registry.Names() {
		if strings.EqualFold(choice, name) {
			return supervisor.RouteTo(name)
		}
	}

	return supervisor.InvalidDecision(fmt.Sprintf("unrecognized routing answer %q", utils.TruncateForLog(choice, 80)))
}

func terminateName(terminate bool) string {
	if terminate {
		return finishOption
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// extractJSON strips markdown code fences the model may wrap its answer in.
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
