// Package client provides an HTTP client for the Sophia server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// Client talks to a running Sophia server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses the SOPHIA_SERVER_URL env var or defaults to
// localhost:8090. Timeout can be configured via SOPHIA_CLIENT_TIMEOUT
// (default 10m; chat and debate turns wait on model calls).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SOPHIA_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("SOPHIA_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// envelope matches the server's response wrapper: data on success, a
// message under error otherwise.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// do sends a JSON request and decodes the enveloped response into result.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, result)
}

func (c *Client) send(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("server error: %s - %s", resp.Status, string(raw))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error != "" {
			return fmt.Errorf("server error: %s", env.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return nil
}

// Persona is a trained identity the server can answer as.
type Persona struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	ShortBio string    `json:"short_bio"`
	Created  time.Time `json:"created"`
}

// Upload describes a trained document and its training outcome.
type Upload struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	URL            string    `json:"url"`
	Persona        *string   `json:"persona,omitempty"`
	TrainingStatus string    `json:"training_status"`
	MissingConfig  []string  `json:"missing_config,omitempty"`
	Created        time.Time `json:"created"`
}

// Message is one entry in a conversation transcript.
type Message struct {
	ID            string    `json:"id"`
	Conversation  string    `json:"conversation"`
	Content       string    `json:"content"`
	AuthorKind    string    `json:"author_kind"`
	AuthorPersona *string   `json:"author_persona,omitempty"`
	Created       time.Time `json:"created"`
}

// Source is a verified citation attached to an answer.
type Source struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// ChatResult is the outcome of one chat exchange.
type ChatResult struct {
	ConversationID string   `json:"conversation_id"`
	UserMessage    Message  `json:"user_message"`
	Reply          Message  `json:"reply"`
	Sources        []Source `json:"sources"`
}

// DebateParticipant names one side of a debate; OrderIndex 0 speaks first.
type DebateParticipant struct {
	PersonaID  string `json:"persona_id"`
	OrderIndex int    `json:"order_index"`
}

// Debate is a two-party exchange over a topic.
type Debate struct {
	ID           string              `json:"id"`
	Topic        string              `json:"topic"`
	Conversation string              `json:"conversation"`
	Participants []DebateParticipant `json:"participants"`
	Created      time.Time           `json:"created"`
}

// ChunkMatch is one ranked vector hit in a context preview.
type ChunkMatch struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	SourceURL string  `json:"source_url"`
	Score     float64 `json:"score"`
}

// RetrievedContext is the assembled context a question would be answered
// from, returned by the preview endpoint.
type RetrievedContext struct {
	Chunks        []ChunkMatch `json:"chunks"`
	RelationHints []string     `json:"relation_hints"`
	Text          string       `json:"text"`
}

// ServiceStatus reports whether one capability is configured.
type ServiceStatus struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing,omitempty"`
}

// OperationStats summarizes one operation's recorded timings.
type OperationStats struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Stats is the server's runtime statistics snapshot. Operations the
// server has not performed yet are nil.
type Stats struct {
	UptimeSeconds float64         `json:"uptime_seconds"`
	Embedding     *OperationStats `json:"embedding,omitempty"`
	Completion    *OperationStats `json:"completion,omitempty"`
	VectorSearch  *OperationStats `json:"vector_search,omitempty"`
	GraphSearch   *OperationStats `json:"graph_search,omitempty"`
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ConfigStatus reports which capabilities the server's configuration
// supports, keyed by capability name.
func (c *Client) ConfigStatus(ctx context.Context) (map[string]ServiceStatus, error) {
	var status map[string]ServiceStatus
	if err := c.do(ctx, http.MethodGet, "/api/config/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// Stats returns the server's runtime statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreatePersona registers a new persona.
func (c *Client) CreatePersona(ctx context.Context, name, shortBio string) (*Persona, error) {
	body := map[string]string{"name": name, "short_bio": shortBio}
	var persona Persona
	if err := c.do(ctx, http.MethodPost, "/api/personas", body, &persona); err != nil {
		return nil, err
	}
	return &persona, nil
}

// ListPersonas returns all registered personas.
func (c *Client) ListPersonas(ctx context.Context) ([]Persona, error) {
	var personas []Persona
	if err := c.do(ctx, http.MethodGet, "/api/personas", nil, &personas); err != nil {
		return nil, err
	}
	return personas, nil
}

// GetPersona fetches one persona by id.
func (c *Client) GetPersona(ctx context.Context, id string) (*Persona, error) {
	var persona Persona
	if err := c.do(ctx, http.MethodGet, "/api/personas/"+id, nil, &persona); err != nil {
		return nil, err
	}
	return &persona, nil
}

// UploadDocument submits a document for training. sourceURL and personaID
// are optional; training runs asynchronously and the returned upload
// carries its initial training status.
func (c *Client) UploadDocument(ctx context.Context, filename string, document []byte, sourceURL string, personaID *string) (*Upload, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if sourceURL != "" {
		if err := form.WriteField("url", sourceURL); err != nil {
			return nil, fmt.Errorf("write url field: %w", err)
		}
	}
	if personaID != nil {
		if err := form.WriteField("persona", *personaID); err != nil {
			return nil, fmt.Errorf("write persona field: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var upload Upload
	if err := c.send(req, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

// GetUpload fetches one upload by id, including its training status.
func (c *Client) GetUpload(ctx context.Context, id string) (*Upload, error) {
	var upload Upload
	if err := c.do(ctx, http.MethodGet, "/api/uploads/"+id, nil, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

// SendChat sends a chat message. An empty conversationID starts a new
// conversation; personaID selects whose voice and corpus answer.
func (c *Client) SendChat(ctx context.Context, conversationID, content string, personaID *string) (*ChatResult, error) {
	body := map[string]any{
		"conversation_id": conversationID,
		"content":         content,
	}
	if personaID != nil {
		body["persona_id"] = *personaID
	}

	var result ChatResult
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConversationMessages returns a conversation's transcript in order.
func (c *Client) ConversationMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var messages []Message
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+conversationID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// PreviewContext runs retrieval alone for a query, without generation.
func (c *Client) PreviewContext(ctx context.Context, query string, personaID *string) (*RetrievedContext, error) {
	body := map[string]any{"query": query}
	if personaID != nil {
		body["persona_id"] = *personaID
	}

	var rc RetrievedContext
	if err := c.do(ctx, http.MethodPost, "/api/context/preview", body, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// CreateDebate starts a debate between exactly two personas.
// initialMessage optionally frames the exchange before the first statement.
func (c *Client) CreateDebate(ctx context.Context, topic string, participants []DebateParticipant, initialMessage string) (*Debate, error) {
	body := map[string]any{
		"topic":        topic,
		"participants": participants,
	}
	if initialMessage != "" {
		body["initial_message"] = initialMessage
	}

	var debate Debate
	if err := c.do(ctx, http.MethodPost, "/api/debates", body, &debate); err != nil {
		return nil, err
	}
	return &debate, nil
}

// GetDebate fetches one debate by id.
func (c *Client) GetDebate(ctx context.Context, id string) (*Debate, error) {
	var debate Debate
	if err := c.do(ctx, http.MethodGet, "/api/debates/"+id, nil, &debate); err != nil {
		return nil, err
	}
	return &debate, nil
}

// DebateTurn generates and persists the next statement in a debate.
func (c *Client) DebateTurn(ctx context.Context, debateID string) (*Message, error) {
	var message Message
	if err := c.do(ctx, http.MethodPost, "/api/debates/"+debateID+"/turn", nil, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// DebateMessages returns a debate's transcript in order.
func (c *Client) DebateMessages(ctx context.Context, debateID string) ([]Message, error) {
	var messages []Message
	if err := c.do(ctx, http.MethodGet, "/api/debates/"+debateID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
