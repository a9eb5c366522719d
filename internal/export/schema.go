package export

// Schema DDL for snapshot databases. Statements are idempotent so that an
// existing snapshot can be refreshed in place.
const (
	createCollections = `CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    document_count INTEGER NOT NULL,
    exported_at TEXT NOT NULL
);`

	createDocuments = `CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);`

	createDocumentsIndex = `CREATE INDEX IF NOT EXISTS idx_documents_position ON documents(collection, position);`
)

var schemaStatements = []string{createCollections, createDocuments, createDocumentsIndex}
