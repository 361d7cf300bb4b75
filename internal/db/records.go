package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/sophia-labs/sophia/internal/models"
)

// CreatePersona creates a persona profile.
func (c *Client) CreatePersona(ctx context.Context, input models.PersonaInput) (*models.Persona, error) {
	results, err := surrealdb.Query[[]models.Persona](ctx, c.db, `
		CREATE type::record("persona", $id) CONTENT {
			name: $name,
			short_bio: $short_bio
		}
	`, map[string]any{
		"id":        uuid.NewString(),
		"name":      input.Name,
		"short_bio": input.ShortBio,
	})
	if err != nil {
		return nil, fmt.Errorf("create persona: %w", wrapQueryError(err))
	}
	return firstRecord(results)
}

// GetPersona retrieves a persona by id. Returns nil when not found.
func (c *Client) GetPersona(ctx context.Context, id string) (*models.Persona, error) {
	results, err := surrealdb.Query[[]models.Persona](ctx, c.db, `
		SELECT * FROM type::record("persona", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get persona: %w", wrapQueryError(err))
	}
	return firstOrNil(results)
}

// ListPersonas returns all personas.
func (c *Client) ListPersonas(ctx context.Context) ([]models.Persona, error) {
	results, err := surrealdb.Query[[]models.Persona](ctx, c.db, `
		SELECT * FROM persona ORDER BY name ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", wrapQueryError(err))
	}
	return allRecords(results), nil
}

// CreateUpload persists the metadata record for an ingested document.
func (c *Client) CreateUpload(ctx context.Context, filename, url string, personaID *string) (*models.Upload, error) {
	results, err := surrealdb.Query[[]models.Upload](ctx, c.db, `
		CREATE type::record("upload", $id) CONTENT {
			filename: $filename,
			url: $url,
			persona: $persona,
			training_status: $status
		}
	`, map[string]any{
		"id":       uuid.NewString(),
		"filename": filename,
		"url":      url,
		"persona":  personaID,
		"status":   string(models.TrainingStarted),
	})
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", wrapQueryError(err))
	}
	return firstRecord(results)
}

// SetUploadTrainingStatus records the training outcome on the upload. The
// upload itself is never rolled back for a training failure.
func (c *Client) SetUploadTrainingStatus(ctx context.Context, id string, status models.TrainingStatus) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("upload", $id) SET training_status = $status
	`, map[string]any{"id": id, "status": string(status)})
	if err != nil {
		return fmt.Errorf("set upload status: %w", wrapQueryError(err))
	}
	return nil
}

// GetUpload retrieves an upload by id. Returns nil when not found.
func (c *Client) GetUpload(ctx context.Context, id string) (*models.Upload, error) {
	results, err := surrealdb.Query[[]models.Upload](ctx, c.db, `
		SELECT * FROM type::record("upload", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", wrapQueryError(err))
	}
	return firstOrNil(results)
}

// CreateConversation creates an empty conversation.
func (c *Client) CreateConversation(ctx context.Context, kind models.ConversationKind) (*models.Conversation, error) {
	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		CREATE type::record("conversation", $id) CONTENT { kind: $kind }
	`, map[string]any{"id": uuid.NewString(), "kind": string(kind)})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", wrapQueryError(err))
	}
	return firstRecord(results)
}

// GetConversation retrieves a conversation by id. Returns nil when not found.
func (c *Client) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM type::record("conversation", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", wrapQueryError(err))
	}
	return firstOrNil(results)
}

// CreateMessage appends a message to a conversation.
func (c *Client) CreateMessage(ctx context.Context, input models.MessageInput) (*models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		CREATE type::record("message", $id) CONTENT {
			conversation: $conversation,
			content: $content,
			author_kind: $author_kind,
			author_persona: $author_persona
		}
	`, map[string]any{
		"id":             uuid.NewString(),
		"conversation":   input.Conversation,
		"content":        input.Content,
		"author_kind":    string(input.AuthorKind),
		"author_persona": input.AuthorPersona,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", wrapQueryError(err))
	}
	return firstRecord(results)
}

// ListMessages returns a conversation's messages ordered by creation time.
// Turn selection depends on this ordering being stable.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message WHERE conversation = $conversation ORDER BY created ASC
	`, map[string]any{"conversation": conversationID})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", wrapQueryError(err))
	}
	return allRecords(results), nil
}

// CreateDebate creates a debate and its backing conversation.
func (c *Client) CreateDebate(ctx context.Context, topic string, participants []models.DebateParticipant) (*models.Debate, error) {
	conversation, err := c.CreateConversation(ctx, models.ConversationDebate)
	if err != nil {
		return nil, err
	}
	conversationID, err := models.RecordIDString(conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}

	results, err := surrealdb.Query[[]models.Debate](ctx, c.db, `
		CREATE type::record("debate", $id) CONTENT {
			topic: $topic,
			conversation: $conversation,
			participants: $participants
		}
	`, map[string]any{
		"id":           uuid.NewString(),
		"topic":        topic,
		"conversation": conversationID,
		"participants": participants,
	})
	if err != nil {
		return nil, fmt.Errorf("create debate: %w", wrapQueryError(err))
	}
	return firstRecord(results)
}

// GetDebate retrieves a debate by id. Returns nil when not found.
func (c *Client) GetDebate(ctx context.Context, id string) (*models.Debate, error) {
	results, err := surrealdb.Query[[]models.Debate](ctx, c.db, `
		SELECT * FROM type::record("debate", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get debate: %w", wrapQueryError(err))
	}
	return firstOrNil(results)
}

// firstRecord returns the first result row, erroring when the query
// produced nothing (unexpected for CREATE statements).
func firstRecord[T any](results *[]surrealdb.QueryResult[[]T]) (*T, error) {
	record, err := firstOrNilResult(results)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("query returned no rows")
	}
	return record, nil
}

// firstOrNil returns the first result row or nil when absent.
func firstOrNil[T any](results *[]surrealdb.QueryResult[[]T]) (*T, error) {
	return firstOrNilResult(results)
}

func firstOrNilResult[T any](results *[]surrealdb.QueryResult[[]T]) (*T, error) {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// allRecords flattens the first query result into a slice.
func allRecords[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return []T{}
	}
	return (*results)[0].Result
}
