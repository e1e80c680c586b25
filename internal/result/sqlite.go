package result

import (
	"fmt"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"goflow/internal/diag"
	"goflow/internal/icfg"
)

// WriteSQLite persists one analysis's Document to path, adapted from the
// teacher's WriteDB (db.go): same open flags, the same four performance
// pragmas, and the same prepare-once/bind-per-row/ImmediateTransaction
// batch-insert shape, applied to a much smaller schema since this
// framework's results are per-node fact sets rather than a whole property
// graph. The database accumulates across calls — one file holds every
// analysis a run executes, each in its own analysis_runs row.
func WriteSQLite(path string, g *icfg.Graph, doc Document, log *diag.Logger) error {
	log.Info("writing SQLite results to %s", path)

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = NORMAL", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA temp_store = MEMORY", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA cache_size = -64000", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = WAL", nil); err != nil {
		return err
	}

	if err := createResultTables(conn); err != nil {
		return err
	}

	runID, err := insertRun(conn, doc.Analysis)
	if err != nil {
		return err
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := insertResults(conn, runID, doc.Results, log); err != nil {
		endFn(&err)
		return err
	}
	endFn(&err)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info("wrote %d node results for analysis %q", len(doc.Results), doc.Analysis)
	return nil
}

func createResultTables(conn *sqlite.Conn) error {
	ddl := `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    analysis TEXT NOT NULL,
    ran_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS facts (
    run_id INTEGER NOT NULL REFERENCES analysis_runs(id),
    node_id TEXT NOT NULL,
    fact TEXT NOT NULL,
    edge_value TEXT
);

CREATE INDEX IF NOT EXISTS idx_facts_run_node ON facts(run_id, node_id);
`
	return sqlitex.ExecuteScript(conn, ddl, nil)
}

func insertRun(conn *sqlite.Conn, analysis string) (int64, error) {
	stmt, err := conn.Prepare(`INSERT INTO analysis_runs (analysis) VALUES (?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare run insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()
	stmt.BindText(1, analysis)
	if _, err := stmt.Step(); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return conn.LastInsertRowID(), nil
}

func insertResults(conn *sqlite.Conn, runID int64, results []NodeResult, log *diag.Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO facts (run_id, node_id, fact, edge_value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fact insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, nr := range results {
		for i, fact := range nr.Facts {
			stmt.BindInt64(1, runID)
			stmt.BindText(2, nr.NodeID)
			stmt.BindText(3, fact)
			if i < len(nr.EdgeValues) {
				stmt.BindText(4, nr.EdgeValues[i])
			} else {
				stmt.BindNull(4)
			}
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert fact for node %s: %w", nr.NodeID, err)
			}
			if err := stmt.Reset(); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeStale deletes a pre-existing database at path before a fresh run,
// mirroring the teacher's WriteDB os.Remove-before-open. Unlike the
// teacher, nothing in the framework calls it: WriteSQLite appends each
// analysis's results to an existing file, so one file collects every
// analysis of a run, and the results of earlier runs stay in it too.
func removeStale(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
