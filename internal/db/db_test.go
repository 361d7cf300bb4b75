//go:build integration

// Package db integration tests run against a real SurrealDB container.
// Run with: go test -tags integration ./internal/db/
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sophia-labs/sophia/internal/models"
)

const testEmbedDimension = 8

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v2.3.3",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx, testEmbedDimension); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// testEmbedding returns a deterministic vector; seed skews one component
// so different seeds rank differently under cosine similarity.
func testEmbedding(seed int) []float32 {
	embedding := make([]float32, testEmbedDimension)
	for i := range embedding {
		embedding[i] = 0.1
	}
	embedding[seed%testEmbedDimension] = 1.0
	return embedding
}

func mustPersona(t *testing.T, name string) string {
	t.Helper()
	persona, err := testDB.CreatePersona(context.Background(), models.PersonaInput{
		Name:     name,
		ShortBio: "test persona",
	})
	if err != nil {
		t.Fatalf("CreatePersona failed: %v", err)
	}
	id, err := models.RecordIDString(persona.ID)
	if err != nil {
		t.Fatalf("persona id: %v", err)
	}
	return id
}

func TestPersonaRoundTrip(t *testing.T) {
	ctx := context.Background()

	id := mustPersona(t, "Round Trip Persona")

	persona, err := testDB.GetPersona(ctx, id)
	if err != nil {
		t.Fatalf("GetPersona failed: %v", err)
	}
	if persona == nil {
		t.Fatal("GetPersona returned nil")
	}
	if persona.Name != "Round Trip Persona" {
		t.Errorf("Expected name 'Round Trip Persona', got %q", persona.Name)
	}

	personas, err := testDB.ListPersonas(ctx)
	if err != nil {
		t.Fatalf("ListPersonas failed: %v", err)
	}
	found := false
	for _, p := range personas {
		if p.Name == "Round Trip Persona" {
			found = true
		}
	}
	if !found {
		t.Error("ListPersonas should include created persona")
	}

	missing, err := testDB.GetPersona(ctx, "persona:doesnotexist")
	if err != nil {
		t.Errorf("GetPersona with unknown id should not error: %v", err)
	}
	if missing != nil {
		t.Error("GetPersona with unknown id should return nil")
	}
}

func TestUploadTrainingStatus(t *testing.T) {
	ctx := context.Background()

	upload, err := testDB.CreateUpload(ctx, "paper.pdf", "https://example.com/paper.pdf", nil)
	if err != nil {
		t.Fatalf("CreateUpload failed: %v", err)
	}
	if upload.TrainingStatus != models.TrainingStarted {
		t.Errorf("Expected initial status %q, got %q", models.TrainingStarted, upload.TrainingStatus)
	}

	id, err := models.RecordIDString(upload.ID)
	if err != nil {
		t.Fatalf("upload id: %v", err)
	}

	if err := testDB.SetUploadTrainingStatus(ctx, id, models.TrainingCompleted); err != nil {
		t.Fatalf("SetUploadTrainingStatus failed: %v", err)
	}

	fetched, err := testDB.GetUpload(ctx, id)
	if err != nil {
		t.Fatalf("GetUpload failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("GetUpload returned nil")
	}
	if fetched.TrainingStatus != models.TrainingCompleted {
		t.Errorf("Expected status %q, got %q", models.TrainingCompleted, fetched.TrainingStatus)
	}
}

func TestChunkUpsertOverwrites(t *testing.T) {
	ctx := context.Background()

	chunk := models.Chunk{
		ID:        "upsert-test-1-0",
		Content:   "first version",
		SourceURL: "https://example.com/doc.pdf",
		Upload:    "upload:upserttest",
		Embedding: testEmbedding(1),
	}
	if err := testDB.UpsertChunk(ctx, chunk); err != nil {
		t.Fatalf("First UpsertChunk failed: %v", err)
	}

	before, err := testDB.CountChunks(ctx, nil)
	if err != nil {
		t.Fatalf("CountChunks failed: %v", err)
	}

	chunk.Content = "second version"
	if err := testDB.UpsertChunk(ctx, chunk); err != nil {
		t.Fatalf("Second UpsertChunk failed: %v", err)
	}

	after, err := testDB.CountChunks(ctx, nil)
	if err != nil {
		t.Fatalf("CountChunks after re-upsert failed: %v", err)
	}
	if after != before {
		t.Errorf("Re-upserting the same id should not add chunks: before=%d after=%d", before, after)
	}

	matches, err := testDB.SearchChunks(ctx, testEmbedding(1), 5, nil)
	if err != nil {
		t.Fatalf("SearchChunks failed: %v", err)
	}
	found := false
	for _, m := range matches {
		if m.Content == "second version" {
			found = true
		}
		if m.Content == "first version" {
			t.Error("Overwritten chunk content still present")
		}
	}
	if !found {
		t.Error("Expected overwritten chunk content in search results")
	}
}

func TestSearchChunksPersonaScoping(t *testing.T) {
	ctx := context.Background()

	einstein := mustPersona(t, "Scoping Einstein")
	newton := mustPersona(t, "Scoping Newton")

	chunks := []models.Chunk{
		{ID: "scope-1-0", Content: "relativity notes", Persona: &einstein,
			SourceURL: "https://example.com/einstein.pdf", Upload: "upload:scope", Embedding: testEmbedding(2)},
		{ID: "scope-1-1", Content: "gravity notes", Persona: &newton,
			SourceURL: "https://example.com/newton.pdf", Upload: "upload:scope", Embedding: testEmbedding(2)},
	}
	if err := testDB.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks failed: %v", err)
	}

	matches, err := testDB.SearchChunks(ctx, testEmbedding(2), 10, &einstein)
	if err != nil {
		t.Fatalf("SearchChunks failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("Expected at least one scoped match")
	}
	for _, m := range matches {
		if m.Content == "gravity notes" {
			t.Error("Persona-scoped search returned another persona's chunk")
		}
	}

	count, err := testDB.CountChunks(ctx, &einstein)
	if err != nil {
		t.Fatalf("CountChunks scoped failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 chunk for persona, got %d", count)
	}
}

func TestMergeFactsIdempotent(t *testing.T) {
	ctx := context.Background()

	persona := mustPersona(t, "Idempotent Persona")
	facts := []models.Fact{
		{Subject: "Albert Einstein", Predicate: "DESCRIBES", Object: "general relativity"},
		{Subject: "Albert Einstein", Predicate: "PART_OF", Object: "Institute for Advanced Study"},
	}

	if err := testDB.MergeFacts(ctx, facts, &persona); err != nil {
		t.Fatalf("First MergeFacts failed: %v", err)
	}
	nodes1, edges1, err := testDB.CountGraph(ctx, &persona)
	if err != nil {
		t.Fatalf("CountGraph failed: %v", err)
	}
	if nodes1 != 3 {
		t.Errorf("Expected 3 entities, got %d", nodes1)
	}
	if edges1 != 2 {
		t.Errorf("Expected 2 relations, got %d", edges1)
	}

	// Merging the same facts again must not grow the graph.
	if err := testDB.MergeFacts(ctx, facts, &persona); err != nil {
		t.Fatalf("Second MergeFacts failed: %v", err)
	}
	nodes2, edges2, err := testDB.CountGraph(ctx, &persona)
	if err != nil {
		t.Fatalf("CountGraph after re-merge failed: %v", err)
	}
	if nodes2 != nodes1 || edges2 != edges1 {
		t.Errorf("Re-merge changed graph size: nodes %d->%d, edges %d->%d",
			nodes1, nodes2, edges1, edges2)
	}
}

func TestSearchFactsByKeyword(t *testing.T) {
	ctx := context.Background()

	persona := mustPersona(t, "Keyword Persona")
	facts := []models.Fact{
		{Subject: "Marie Curie", Predicate: "DESCRIBES", Object: "radioactivity"},
		{Subject: "Marie Curie", Predicate: "PART_OF", Object: "Sorbonne"},
	}
	if err := testDB.MergeFacts(ctx, facts, &persona); err != nil {
		t.Fatalf("MergeFacts failed: %v", err)
	}

	results, err := testDB.SearchFacts(ctx, []string{"curie"}, &persona)
	if err != nil {
		t.Fatalf("SearchFacts failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 facts for 'curie', got %d", len(results))
	}

	results, err = testDB.SearchFacts(ctx, []string{"radioactivity"}, &persona)
	if err != nil {
		t.Fatalf("SearchFacts by object failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 fact for 'radioactivity', got %d", len(results))
	}
	if results[0].Subject != "Marie Curie" {
		t.Errorf("Expected subject 'Marie Curie', got %q", results[0].Subject)
	}

	results, err = testDB.SearchFacts(ctx, []string{"nomatchanywhere"}, &persona)
	if err != nil {
		t.Fatalf("SearchFacts with no match failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no facts, got %d", len(results))
	}
}

func TestMessageOrdering(t *testing.T) {
	ctx := context.Background()

	conversation, err := testDB.CreateConversation(ctx, models.ConversationSingle)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	conversationID, err := models.RecordIDString(conversation.ID)
	if err != nil {
		t.Fatalf("conversation id: %v", err)
	}

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		_, err := testDB.CreateMessage(ctx, models.MessageInput{
			Conversation: conversationID,
			Content:      content,
			AuthorKind:   models.AuthorUser,
		})
		if err != nil {
			t.Fatalf("CreateMessage %q failed: %v", content, err)
		}
	}

	messages, err := testDB.ListMessages(ctx, conversationID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	for i, content := range contents {
		if messages[i].Content != content {
			t.Errorf("Message %d out of order: got %q, want %q", i, messages[i].Content, content)
		}
	}
}

func TestDebateRoundTrip(t *testing.T) {
	ctx := context.Background()

	einstein := mustPersona(t, "Debate Einstein")
	newton := mustPersona(t, "Debate Newton")

	created, err := testDB.CreateDebate(ctx, "Is light a wave?", []models.DebateParticipant{
		{PersonaID: einstein, OrderIndex: 0},
		{PersonaID: newton, OrderIndex: 1},
	})
	if err != nil {
		t.Fatalf("CreateDebate failed: %v", err)
	}
	if created.Conversation == "" {
		t.Error("CreateDebate should create a backing conversation")
	}

	id, err := models.RecordIDString(created.ID)
	if err != nil {
		t.Fatalf("debate id: %v", err)
	}
	fetched, err := testDB.GetDebate(ctx, id)
	if err != nil {
		t.Fatalf("GetDebate failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("GetDebate returned nil")
	}
	if fetched.Topic != "Is light a wave?" {
		t.Errorf("Expected topic 'Is light a wave?', got %q", fetched.Topic)
	}
	if len(fetched.Participants) != 2 {
		t.Errorf("Expected 2 participants, got %d", len(fetched.Participants))
	}
}
