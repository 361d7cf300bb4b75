package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/sophia-labs/sophia/internal/config"
	"github.com/sophia-labs/sophia/internal/debate"
	"github.com/sophia-labs/sophia/internal/models"
	"github.com/sophia-labs/sophia/internal/service"
)

type fakePersonaStore struct {
	personas map[string]*models.Persona
}

func (f *fakePersonaStore) CreatePersona(_ context.Context, input models.PersonaInput) (*models.Persona, error) {
	persona := &models.Persona{
		ID:       surrealmodels.NewRecordID("persona", "p1"),
		Name:     input.Name,
		ShortBio: input.ShortBio,
	}
	if f.personas == nil {
		f.personas = map[string]*models.Persona{}
	}
	f.personas["p1"] = persona
	return persona, nil
}

func (f *fakePersonaStore) GetPersona(_ context.Context, id string) (*models.Persona, error) {
	return f.personas[id], nil
}

func (f *fakePersonaStore) ListPersonas(_ context.Context) ([]models.Persona, error) {
	var out []models.Persona
	for _, p := range f.personas {
		out = append(out, *p)
	}
	return out, nil
}

type fakeUploadAPI struct {
	result *service.IngestResult
}

func (f *fakeUploadAPI) Ingest(_ context.Context, filename, url string, personaID *string, document []byte) (*service.IngestResult, error) {
	if f.result != nil {
		return f.result, nil
	}
	return &service.IngestResult{
		Upload: &models.Upload{
			ID:       surrealmodels.NewRecordID("upload", "u1"),
			Filename: filename,
			URL:      url,
			Persona:  personaID,
		},
		Status: models.TrainingStarted,
	}, nil
}

func (f *fakeUploadAPI) Get(_ context.Context, id string) (*models.Upload, error) {
	if id != "u1" {
		return nil, fmt.Errorf("%w: %s", service.ErrUploadNotFound, id)
	}
	return &models.Upload{
		ID:             surrealmodels.NewRecordID("upload", "u1"),
		Filename:       "bio.pdf",
		TrainingStatus: models.TrainingCompleted,
	}, nil
}

type fakeChatAPI struct{}

func (f *fakeChatAPI) SendMessage(_ context.Context, input service.ChatInput) (*service.ChatResult, error) {
	if input.Content == "" {
		return nil, service.ErrEmptyMessage
	}
	if input.ConversationID == "missing" {
		return nil, service.ErrConversationNotFound
	}
	return &service.ChatResult{
		ConversationID: "c1",
		UserMessage: &models.Message{
			ID: surrealmodels.NewRecordID("message", "m1"), Conversation: "c1",
			Content: input.Content, AuthorKind: models.AuthorUser,
		},
		Reply: &models.Message{
			ID: surrealmodels.NewRecordID("message", "m2"), Conversation: "c1",
			Content: "a reply", AuthorKind: models.AuthorPersona,
		},
	}, nil
}

func (f *fakeChatAPI) Messages(_ context.Context, conversationID string) ([]models.Message, error) {
	if conversationID != "c1" {
		return nil, service.ErrConversationNotFound
	}
	return []models.Message{}, nil
}

type fakeContextAPI struct{}

func (f *fakeContextAPI) Assemble(context.Context, string, *string) (*models.RetrievedContext, error) {
	return &models.RetrievedContext{Text: "Relevant Chunks:\nNone."}, nil
}

type fakeDebateAPI struct{}

func (f *fakeDebateAPI) Create(_ context.Context, input service.DebateInput) (*models.Debate, error) {
	if len(input.Participants) != 2 {
		return nil, debate.ErrParticipantCount
	}
	return &models.Debate{
		ID:           surrealmodels.NewRecordID("debate", "d1"),
		Topic:        input.Topic,
		Conversation: "c1",
		Participants: input.Participants,
	}, nil
}

func (f *fakeDebateAPI) Get(_ context.Context, id string) (*models.Debate, error) {
	if id != "d1" {
		return nil, service.ErrDebateNotFound
	}
	return &models.Debate{ID: surrealmodels.NewRecordID("debate", "d1"), Conversation: "c1"}, nil
}

func (f *fakeDebateAPI) NextTurn(_ context.Context, debateID string) (*models.Message, error) {
	if debateID != "d1" {
		return nil, service.ErrDebateNotFound
	}
	persona := "einstein"
	return &models.Message{
		ID: surrealmodels.NewRecordID("message", "m1"), Conversation: "c1",
		Content: "statement", AuthorKind: models.AuthorPersona, AuthorPersona: &persona,
	}, nil
}

func (f *fakeDebateAPI) Messages(_ context.Context, debateID string) ([]models.Message, error) {
	if debateID != "d1" {
		return nil, service.ErrDebateNotFound
	}
	return []models.Message{}, nil
}

func newTestRouter(uploads UploadAPI) http.Handler {
	return NewRouter(RouterConfig{
		Personas: NewPersonaHandler(&fakePersonaStore{}),
		Uploads:  NewUploadHandler(uploads),
		Chat:     NewChatHandler(&fakeChatAPI{}, &fakeContextAPI{}),
		Debates:  NewDebateHandler(&fakeDebateAPI{}),
		CanTrain: func() config.ServiceCheck {
			return config.ServiceCheck{Missing: []string{"SOPHIA_OPENAI_API_KEY"}}
		},
		CanRespond: func() config.ServiceCheck { return config.ServiceCheck{OK: true} },
		Logger:     slog.New(slog.DiscardHandler),
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestConfigStatusReportsMissingKeys(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodGet, "/api/config/status", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SOPHIA_OPENAI_API_KEY")
	assert.Contains(t, rec.Body.String(), `"responding":{"ok":true}`)
}

func TestStatsEndpoint(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodGet, "/api/stats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uptime_seconds")
}

func TestCreatePersona(t *testing.T) {
	router := newTestRouter(&fakeUploadAPI{})

	rec := doJSON(t, router, http.MethodPost, "/api/personas", map[string]string{
		"name": "Albert Einstein", "short_bio": "Physicist.",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Albert Einstein"`)
}

func TestCreatePersonaRequiresName(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/personas", map[string]string{
		"short_bio": "No name.",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPersonaNotFound(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodGet, "/api/personas/ghost", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatSend(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/chat", map[string]string{
		"content": "Where did Einstein work?",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"conversation_id":"c1"`)
	assert.Contains(t, rec.Body.String(), `"a reply"`)
}

func TestChatSendEmptyContent(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/chat", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatUnknownConversation(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/chat", map[string]string{
		"conversation_id": "missing", "content": "hello",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContextPreviewRequiresQuery(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/context/preview", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDebateRejectsSingleParticipant(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/debates", map[string]any{
		"topic": "Is light a wave?",
		"participants": []map[string]any{
			{"persona_id": "einstein", "order_index": 0},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDebateTurn(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/debates/d1/turn", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"statement"`)
	assert.Contains(t, rec.Body.String(), `"einstein"`)
}

func TestDebateTurnNotFound(t *testing.T) {
	rec := doJSON(t, newTestRouter(&fakeUploadAPI{}), http.MethodPost, "/api/debates/ghost/turn", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadMultipart(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "bio.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("url", "https://files.example.com/bio.pdf"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestRouter(&fakeUploadAPI{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"training_status":"started"`)
	assert.Contains(t, rec.Body.String(), `"url":"https://files.example.com/bio.pdf"`)
}

func TestUploadRequiresFilePart(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("url", "https://x.example.com/a.pdf"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestRouter(&fakeUploadAPI{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadSkippedReportsMissingConfig(t *testing.T) {
	uploads := &fakeUploadAPI{result: &service.IngestResult{
		Upload: &models.Upload{
			ID:       surrealmodels.NewRecordID("upload", "u2"),
			Filename: "bio.pdf",
		},
		Status:        models.TrainingSkipped,
		MissingConfig: []string{"SOPHIA_OPENAI_API_KEY"},
	}}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "bio.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestRouter(uploads).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"training_status":"skipped"`)
	assert.Contains(t, rec.Body.String(), "SOPHIA_OPENAI_API_KEY")
}

func TestRequestBodyTooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("x"))
	req.ContentLength = 51 * 1024 * 1024
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(&fakeUploadAPI{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
