package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/sophia-labs/sophia/internal/metrics"
	"github.com/sophia-labs/sophia/internal/models"
)

// GraphFact is one matched graph edge with resolved node names.
type GraphFact struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// entityKey builds the deterministic entity record id. Two training runs
// extracting the same subject for the same persona hit the same node.
func entityKey(name string, personaID *string) string {
	persona := ""
	if personaID != nil {
		persona = *personaID
	}
	return strings.ToLower(strings.TrimSpace(name)) + "|" + persona
}

// MergeFact upserts both entity nodes and the relation edge. Nodes merge on
// name+persona; edges merge on the unique in|out|rel_type key, so repeated
// training runs are idempotent.
func (c *Client) MergeFact(ctx context.Context, fact models.Fact, personaID *string) error {
	subjectID := entityKey(fact.Subject, personaID)
	objectID := entityKey(fact.Object, personaID)

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("entity", $sid) SET name = $sname, persona = $persona;
		UPSERT type::record("entity", $oid) SET name = $oname, persona = $persona;
	`, map[string]any{
		"sid":     subjectID,
		"sname":   fact.Subject,
		"oid":     objectID,
		"oname":   fact.Object,
		"persona": personaID,
	})
	if err != nil {
		return fmt.Errorf("merge entities: %w", wrapQueryError(err))
	}

	_, err = surrealdb.Query[any](ctx, c.db, `
		RELATE (type::record("entity", $sid))->relates->(type::record("entity", $oid))
			SET rel_type = $predicate, persona = $persona
	`, map[string]any{
		"sid":       subjectID,
		"oid":       objectID,
		"predicate": fact.Predicate,
		"persona":   personaID,
	})
	if err != nil {
		wrapped := wrapQueryError(err)
		// The unique edge index rejects duplicates; that is the MERGE
		// succeeding, not a failure.
		if errors.Is(wrapped, ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("merge relation: %w", wrapped)
	}
	return nil
}

// MergeFacts upserts a batch of facts for one persona scope.
func (c *Client) MergeFacts(ctx context.Context, facts []models.Fact, personaID *string) error {
	for _, fact := range facts {
		if err := c.MergeFact(ctx, fact, personaID); err != nil {
			return err
		}
	}
	return nil
}

// SearchFacts matches edges whose subject, object, or relation type contains
// any of the given keywords, scoped to a persona. Raw matches are capped at
// 100 rows; the context assembler applies the final prompt cap.
func (c *Client) SearchFacts(ctx context.Context, keywords []string, personaID *string) ([]GraphFact, error) {
	if len(keywords) == 0 {
		return []GraphFact{}, nil
	}

	vars := map[string]any{}

	conditions := make([]string, 0, len(keywords)*3)
	for i, kw := range keywords {
		param := fmt.Sprintf("kw%d", i)
		vars[param] = strings.ToLower(kw)
		conditions = append(conditions,
			fmt.Sprintf("string::contains(string::lowercase(in.name), $%s)", param),
			fmt.Sprintf("string::contains(string::lowercase(out.name), $%s)", param),
			fmt.Sprintf("string::contains(string::lowercase(rel_type), $%s)", param),
		)
	}

	personaClause := ""
	if personaID != nil {
		personaClause = "persona = $persona AND"
		vars["persona"] = *personaID
	}

	sql := fmt.Sprintf(`
		SELECT in.name AS subject, rel_type AS relation, out.name AS object
		FROM relates
		WHERE %s (%s)
		LIMIT 100
	`, personaClause, strings.Join(conditions, " OR "))

	start := time.Now()
	results, err := surrealdb.Query[[]GraphFact](ctx, c.db, sql, vars)
	metrics.RecordTiming(metrics.OpGraphSearch, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []GraphFact{}, nil
	}
	return (*results)[0].Result, nil
}

// CountGraph returns node and edge counts, optionally persona-scoped.
// Used to verify idempotent ingestion.
func (c *Client) CountGraph(ctx context.Context, personaID *string) (nodes, edges int, err error) {
	type countRow struct {
		Count int `json:"count"`
	}

	personaClause := ""
	vars := map[string]any{}
	if personaID != nil {
		personaClause = "WHERE persona = $persona"
		vars["persona"] = *personaID
	}

	nodeResults, err := surrealdb.Query[[]countRow](ctx, c.db,
		fmt.Sprintf(`SELECT count() AS count FROM entity %s GROUP ALL`, personaClause), vars)
	if err != nil {
		return 0, 0, fmt.Errorf("count entities: %w", wrapQueryError(err))
	}
	edgeResults, err := surrealdb.Query[[]countRow](ctx, c.db,
		fmt.Sprintf(`SELECT count() AS count FROM relates %s GROUP ALL`, personaClause), vars)
	if err != nil {
		return 0, 0, fmt.Errorf("count relations: %w", wrapQueryError(err))
	}

	if nodeResults != nil && len(*nodeResults) > 0 && len((*nodeResults)[0].Result) > 0 {
		nodes = (*nodeResults)[0].Result[0].Count
	}
	if edgeResults != nil && len(*edgeResults) > 0 && len((*edgeResults)[0].Result) > 0 {
		edges = (*edgeResults)[0].Result[0].Count
	}
	return nodes, edges, nil
}
