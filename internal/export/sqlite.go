// Package export writes snapshots of collections into a SQLite database so
// they can be inspected with ordinary SQL tooling, e.g. json_extract over the
// body column.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Source is one collection to export under Name.
type Source struct {
	Name       string
	Collection types.Collection
}

// Summary reports the number of documents exported per collection.
type Summary map[string]int

// ToSQLite snapshots every source into the SQLite database at dbPath,
// creating it if needed. Collections are read concurrently; the database is
// written in a single transaction, replacing earlier snapshots of the same
// collections. Either every source is exported or the database is left
// unchanged.
func ToSQLite(ctx context.Context, dbPath string, sources []Source) (Summary, error) {
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if src.Name == "" {
			return nil, fmt.Errorf("export source has an empty name")
		}
		if _, dup := seen[src.Name]; dup {
			return nil, fmt.Errorf("export source %q listed twice", src.Name)
		}
		seen[src.Name] = struct{}{}
	}

	snapshots := make([][]types.Document, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			docs, err := src.Collection.FindMany(gctx, types.FindOptions{})
			if err != nil {
				return fmt.Errorf("reading collection %s: %w", src.Name, err)
			}
			snapshots[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	defer db.Close()

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning export transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	summary := make(Summary, len(sources))
	for i, src := range sources {
		if err := writeCollection(ctx, tx, src, snapshots[i], now); err != nil {
			return nil, err
		}
		summary[src.Name] = len(snapshots[i])
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing export transaction: %w", err)
	}
	return summary, nil
}

func writeCollection(ctx context.Context, tx *sql.Tx, src Source, docs []types.Document, now string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ?", src.Name); err != nil {
		return fmt.Errorf("clearing %s: %w", src.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (collection, id, position, body) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", src.Name, err)
	}
	defer stmt.Close()

	for pos, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding %s document %d: %w", src.Name, pos, err)
		}
		if _, err := stmt.ExecContext(ctx, src.Name, documentID(doc, pos), pos, string(body)); err != nil {
			return fmt.Errorf("inserting %s document %d: %w", src.Name, pos, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO collections (name, path, document_count, exported_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET path = excluded.path,
		   document_count = excluded.document_count, exported_at = excluded.exported_at`,
		src.Name, src.Collection.Path(), len(docs), now)
	if err != nil {
		return fmt.Errorf("recording collection %s: %w", src.Name, err)
	}
	return nil
}

// documentID returns the document's _id, or its position for documents
// written without one by other tools.
func documentID(doc types.Document, pos int) string {
	if id, ok := doc[types.IDField].(string); ok && id != "" {
		return id
	}
	return "#" + strconv.Itoa(pos)
}
