// Package respond turns retrieved context into persona-styled, cited
// answers.
package respond

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sophia-labs/sophia/internal/llm"
	"github.com/sophia-labs/sophia/internal/models"
)

const (
	sourcesStartMarker = "[SOURCES_USED_START]"
	sourcesEndMarker   = "[SOURCES_USED_END]"

	// ChatFallback is returned when chat generation fails or the context
	// holds no answer.
	ChatFallback = "Answer not in context"
	// DebateFallback is returned when a debate turn cannot be generated.
	DebateFallback = "Unable to generate a debate response."
)

// contextSourceRe matches the source suffix the context assembler attaches
// to every chunk block.
var contextSourceRe = regexp.MustCompile(`\(Source:\s*(https?://[^\s,]+),\s*Score:\s*([\d.]+)\)`)

// notInContextRe recognizes refusal answers, which carry no sources block.
var notInContextRe = regexp.MustCompile(`(?i)answer not in context`)

const chatRules = `Answer using ONLY the provided context. If the context
does not contain the answer, reply with exactly "` + ChatFallback + `".
After your answer, list the source URLs you actually used between
` + sourcesStartMarker + ` and ` + sourcesEndMarker + ` markers, one URL per
line. Do not invent URLs.`

const debateRules = `You are taking part in a structured debate. Argue your
position on the topic, grounded in the provided context, and respond
directly to your opponent's last statement. Stay in character and keep the
response under four paragraphs. After your response, list the source URLs
you actually used between ` + sourcesStartMarker + ` and ` + sourcesEndMarker + `
markers, one URL per line. Do not invent URLs.`

// Source is one citation resolved against the retrieved context.
type Source struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Answer is a generated response with its verified citations.
type Answer struct {
	Content string   `json:"content"`
	Sources []Source `json:"sources"`
}

// Generator produces persona-styled answers over retrieved context.
type Generator struct {
	completer llm.Completer
	logger    *slog.Logger
}

func NewGenerator(completer llm.Completer, logger *slog.Logger) *Generator {
	return &Generator{completer: completer, logger: logger}
}

// Chat answers a user question. Generation failures degrade to the chat
// fallback instead of surfacing an error; a conversation turn always gets a
// reply.
func (g *Generator) Chat(ctx context.Context, persona *models.Persona, rc *models.RetrievedContext, question string) Answer {
	system := personaPrompt(persona) + "\n\n" + chatRules
	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", rc.Text, question)

	raw, err := g.completer.Complete(ctx, system, user)
	if err != nil {
		g.logger.Warn("chat generation failed", "model", g.completer.Name(), "error", err)
		return Answer{Content: ChatFallback}
	}
	return g.finishAnswer(raw, rc, ChatFallback)
}

// DebateTurn generates one debate statement for a persona. The statement
// argues the topic and responds to the opponent's last statement when there
// is one.
func (g *Generator) DebateTurn(ctx context.Context, persona *models.Persona, rc *models.RetrievedContext, topic, opponentStatement string) Answer {
	system := personaPrompt(persona) + "\n\n" + debateRules

	var user strings.Builder
	fmt.Fprintf(&user, "Context:\n%s\n\nDebate topic: %s\n", rc.Text, topic)
	if opponentStatement != "" {
		fmt.Fprintf(&user, "\nYour opponent's last statement:\n%s\n", opponentStatement)
	}

	raw, err := g.completer.Complete(ctx, system, user.String())
	if err != nil {
		g.logger.Warn("debate generation failed", "model", g.completer.Name(), "error", err)
		return Answer{Content: DebateFallback}
	}
	return g.finishAnswer(raw, rc, DebateFallback)
}

// finishAnswer extracts the model's citation block, verifies every listed
// URL against the context, and appends the visible sources section.
func (g *Generator) finishAnswer(raw string, rc *models.RetrievedContext, fallback string) Answer {
	content, listed := splitSourcesBlock(raw)
	content = strings.TrimSpace(content)
	if content == "" {
		return Answer{Content: fallback}
	}
	if notInContextRe.MatchString(content) {
		return Answer{Content: content}
	}

	available := contextSources(rc.Text)
	sources := verifySources(listed, available)
	if dropped := len(listed) - len(sources); dropped > 0 {
		g.logger.Warn("dropped citations not present in context", "dropped", dropped)
	}

	if len(sources) > 0 {
		var sb strings.Builder
		sb.WriteString(content)
		sb.WriteString("\n\n**Sources:**\n")
		for i, src := range sources {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, src.URL)
		}
		content = strings.TrimSpace(sb.String())
	}

	return Answer{Content: content, Sources: sources}
}

// splitSourcesBlock separates the answer text from the URLs the model
// claims to have used. Missing or malformed markers mean no claimed
// sources.
func splitSourcesBlock(raw string) (content string, listed []string) {
	start := strings.Index(raw, sourcesStartMarker)
	if start < 0 {
		return raw, nil
	}
	rest := raw[start+len(sourcesStartMarker):]
	end := strings.Index(rest, sourcesEndMarker)
	if end < 0 {
		return raw[:start], nil
	}

	for _, line := range strings.Split(rest[:end], "\n") {
		url := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if url != "" {
			listed = append(listed, url)
		}
	}

	content = raw[:start] + rest[end+len(sourcesEndMarker):]
	return content, listed
}

// contextSources collects the source URLs present in the context text, in
// order, keyed for lookup with their best score.
func contextSources(contextText string) map[string]float64 {
	available := make(map[string]float64)
	for _, match := range contextSourceRe.FindAllStringSubmatch(contextText, -1) {
		url := match[1]
		score, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		if best, ok := available[url]; !ok || score > best {
			available[url] = score
		}
	}
	return available
}

// verifySources keeps only listed URLs that actually appear in the context,
// deduplicated in listing order. Hallucinated URLs are dropped.
func verifySources(listed []string, available map[string]float64) []Source {
	var sources []Source
	seen := make(map[string]struct{}, len(listed))
	for _, url := range listed {
		score, ok := available[url]
		if !ok {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		sources = append(sources, Source{URL: url, Score: score})
	}
	return sources
}

// personaPrompt builds the style preamble. Without a persona the system
// speaks as a neutral assistant.
func personaPrompt(persona *models.Persona) string {
	if persona == nil {
		return "You are a helpful assistant."
	}
	prompt := fmt.Sprintf("You are %s, a historical figure. Speak in first person, in the voice, vocabulary, and temperament of %s.",
		persona.Name, persona.Name)
	if persona.ShortBio != "" {
		prompt += " " + persona.ShortBio
	}
	return prompt
}
