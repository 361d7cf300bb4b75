package db

import "fmt"

// SchemaSQL returns the schema initialization SQL. The chunk HNSW index
// dimension must match the configured embedding model.
func SchemaSQL(embedDimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- CHUNK TABLE (vector index)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS persona ON chunk TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS source_url ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS upload ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS page ON chunk TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS chunk_index ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS created ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_persona ON chunk FIELDS persona;
    DEFINE INDEX IF NOT EXISTS chunk_upload ON chunk FIELDS upload;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- ENTITY + RELATES (knowledge graph)
    -- ==========================================================================
    -- Entity records use a deterministic id derived from name+persona, so
    -- repeated training merges instead of duplicating nodes.
    DEFINE TABLE IF NOT EXISTS entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS persona ON entity TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON entity TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS entity_persona ON entity FIELDS persona;

    DEFINE TABLE IF NOT EXISTS relates TYPE RELATION IN entity OUT entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS rel_type ON relates TYPE string;
    DEFINE FIELD IF NOT EXISTS persona ON relates TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON relates TYPE datetime DEFAULT time::now();
    -- Unique constraint gives the MERGE semantics: the same fact upserted
    -- twice produces one edge.
    DEFINE FIELD IF NOT EXISTS unique_key ON relates VALUE <string>string::concat(<string>in, '|', <string>out, '|', rel_type);
    DEFINE INDEX IF NOT EXISTS unique_relation ON relates FIELDS unique_key UNIQUE;

    -- ==========================================================================
    -- PERSONA TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS persona SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON persona TYPE string;
    DEFINE FIELD IF NOT EXISTS short_bio ON persona TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON persona TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- CONVERSATION / MESSAGE TABLES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS kind ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON conversation TYPE datetime DEFAULT time::now();

    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS author_kind ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS author_persona ON message TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS conversation;

    -- ==========================================================================
    -- DEBATE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS debate SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS topic ON debate TYPE string;
    DEFINE FIELD IF NOT EXISTS conversation ON debate TYPE string;
    DEFINE FIELD IF NOT EXISTS participants ON debate TYPE array<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created ON debate TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- UPLOAD TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS upload SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS filename ON upload TYPE string;
    DEFINE FIELD IF NOT EXISTS url ON upload TYPE string;
    DEFINE FIELD IF NOT EXISTS persona ON upload TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS training_status ON upload TYPE string DEFAULT 'started';
    DEFINE FIELD IF NOT EXISTS created ON upload TYPE datetime DEFAULT time::now();
`, embedDimension)
}
