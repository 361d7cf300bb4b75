package training

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sophia-labs/sophia/internal/llm"
	"github.com/sophia-labs/sophia/internal/models"
)

const (
	// extractBatchSize is how many chunks share one extraction prompt.
	extractBatchSize = 10
	// extractConcurrency bounds parallel extraction calls.
	extractConcurrency = 5
)

const extractSystemPrompt = `You extract knowledge graph triplets from text.
Respond with ONLY a JSON object of the form
{"triplets": [{"subject": "...", "predicate": "...", "object": "..."}]}
and nothing else. No prose, no code fences. Subjects and objects are short
noun phrases; predicates are short verb phrases. Extract every factual
relationship you find.`

// TripletExtractor pulls subject-predicate-object facts out of chunk text
// with a completion model.
type TripletExtractor struct {
	completer   llm.Completer
	batchSize   int
	concurrency int
	attempts    int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// NewTripletExtractor creates an extractor with production batching limits.
func NewTripletExtractor(completer llm.Completer, logger *slog.Logger) *TripletExtractor {
	return &TripletExtractor{
		completer:   completer,
		batchSize:   extractBatchSize,
		concurrency: extractConcurrency,
		attempts:    defaultRetryAttempts,
		retryDelay:  defaultRetryDelay,
		logger:      logger,
	}
}

// Extract runs triplet extraction over all texts. Batches that keep failing
// after retries are skipped, not fatal: a partly populated graph beats a
// failed training run. The number of skipped batches is returned so the
// pipeline can log it.
func (e *TripletExtractor) Extract(ctx context.Context, texts []string) ([]models.Fact, int, error) {
	if len(texts) == 0 {
		return []models.Fact{}, 0, nil
	}

	batches := batchTexts(texts, e.batchSize)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		facts   []models.Fact
		skipped int
	)
	sem := make(chan struct{}, e.concurrency)

	for i, batch := range batches {
		wg.Add(1)
		go func(batchIndex int, batch []string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			batchFacts, err := e.extractBatch(ctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped++
				e.logger.Warn("skipping extraction batch",
					"batch", batchIndex, "chunks", len(batch), "error", err)
				return
			}
			facts = append(facts, batchFacts...)
		}(i, batch)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, skipped, err
	}
	return facts, skipped, nil
}

func (e *TripletExtractor) extractBatch(ctx context.Context, batch []string) ([]models.Fact, error) {
	prompt := strings.Join(batch, "\n---\n")

	var facts []models.Fact
	err := withRetry(ctx, e.attempts, e.retryDelay, func() error {
		raw, err := e.completer.Complete(ctx, extractSystemPrompt, prompt)
		if err != nil {
			return err
		}
		parsed, err := parseTriplets(raw)
		if err != nil {
			return err
		}
		facts = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return facts, nil
}

// batchTexts splits texts into groups of at most size.
func batchTexts(texts []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batches = append(batches, texts[start:end])
	}
	return batches
}

type tripletPayload struct {
	Triplets []struct {
		Subject   string `json:"subject"`
		Predicate string `json:"predicate"`
		Object    string `json:"object"`
	} `json:"triplets"`
}

// parseTriplets reads the model output. The JSON schema is authoritative;
// when the model drifts into prose, a line-oriented "A - B - C" fallback
// recovers what it can. Only when both fail is the output an error.
func parseTriplets(raw string) ([]models.Fact, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))

	var payload tripletPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		facts := make([]models.Fact, 0, len(payload.Triplets))
		for _, t := range payload.Triplets {
			if fact, ok := normalizeFact(t.Subject, t.Predicate, t.Object); ok {
				facts = append(facts, fact)
			}
		}
		return facts, nil
	}

	facts := parseTripletLines(cleaned)
	if len(facts) == 0 {
		return nil, fmt.Errorf("unparseable extraction output")
	}
	return facts, nil
}

// parseTripletLines scans for "subject - predicate - object" lines.
func parseTripletLines(raw string) []models.Fact {
	var facts []models.Fact
	for _, line := range strings.Split(raw, "\n") {
		parts := strings.Split(line, " - ")
		if len(parts) != 3 {
			continue
		}
		if fact, ok := normalizeFact(parts[0], parts[1], parts[2]); ok {
			facts = append(facts, fact)
		}
	}
	return facts
}

// normalizeFact trims the parts and maps absent or placeholder predicates to
// the generic one. Facts missing a subject or object are dropped.
func normalizeFact(subject, predicate, object string) (models.Fact, bool) {
	subject = strings.TrimSpace(subject)
	predicate = strings.TrimSpace(predicate)
	object = strings.TrimSpace(object)

	if subject == "" || object == "" {
		return models.Fact{}, false
	}
	if predicate == "" || strings.EqualFold(predicate, "relationship") {
		predicate = models.GenericPredicate
	}
	return models.Fact{Subject: subject, Predicate: predicate, Object: object}, true
}

// stripCodeFence removes a surrounding markdown code fence when present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
