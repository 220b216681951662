// Package graph maintains an SQLite-backed adjacency cache over the
// append-only edge logs. It is derived data: built at startup by replaying
// the logs, kept current through the store's edge-append hook, and serving
// relation-filtered queries and the graph export without rescanning JSONL
// files. The logs remain the source of truth; Load replays them at any time.
package graph

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/othala/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS edges (
	family TEXT NOT NULL,
	src    TEXT NOT NULL,
	type   TEXT NOT NULL,
	dst    TEXT NOT NULL,
	date   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_edges_family ON edges(family);
CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);
`

// DB wraps the SQLite connection holding the adjacency cache.
type DB struct {
	conn *sql.DB
}

// Open opens the cache at dsn (":memory:" when empty) and applies the schema.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("graph: open db: %w", err)
	}
	// A pooled second connection to :memory: would see a different database.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graph: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graph: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

// Load wipes the cache and replays every edge-log family from the store.
func (db *DB) Load(store *storage.Store) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM edges`); err != nil {
		return fmt.Errorf("graph: clear: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO edges (family, src, type, dst, date) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("graph: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, family := range []string{storage.EdgeRelates, storage.EdgeTags, storage.EdgeAuthors, storage.EdgeLinks} {
		var insertErr error
		err := store.EachEdge(family, func(src, relType, dst, date string) {
			if insertErr != nil {
				return
			}
			_, insertErr = stmt.Exec(family, src, relType, dst, date)
		})
		if err != nil {
			return err
		}
		if insertErr != nil {
			return fmt.Errorf("graph: load %s: %w", family, insertErr)
		}
	}
	return tx.Commit()
}

// Record appends one edge fact. Wired as the store's edge hook; a cache
// insert failure is not propagated to the writer since the log already
// holds the fact.
func (db *DB) Record(family, src, relType, dst, date string) {
	_, _ = db.conn.Exec(`INSERT INTO edges (family, src, type, dst, date) VALUES (?, ?, ?, ?, ?)`,
		family, src, relType, dst, date)
}

// RelatesPair is one relates edge endpoint pair.
type RelatesPair struct {
	Src string
	Dst string
}

// RelatesPairs returns every relates edge in the cache.
func (db *DB) RelatesPairs() ([]RelatesPair, error) {
	rows, err := db.conn.Query(`SELECT src, dst FROM edges WHERE family = ?`, storage.EdgeRelates)
	if err != nil {
		return nil, fmt.Errorf("graph: relates pairs: %w", err)
	}
	defer rows.Close()

	var out []RelatesPair
	for rows.Next() {
		var p RelatesPair
		if err := rows.Scan(&p.Src, &p.Dst); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Node is a vertex in the exported relates graph.
type Node struct {
	ID string `json:"id"`
}

// Link is an exported relates edge.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Export returns the relates subgraph for visualization.
func (db *DB) Export() ([]Node, []Link, error) {
	rows, err := db.conn.Query(`SELECT src, type, dst FROM edges WHERE family = ?`, storage.EdgeRelates)
	if err != nil {
		return nil, nil, fmt.Errorf("graph: export: %w", err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	var nodes []Node
	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Source, &l.Type, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
		for _, id := range []string{l.Source, l.Target} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				nodes = append(nodes, Node{ID: id})
			}
		}
	}
	return nodes, links, rows.Err()
}
