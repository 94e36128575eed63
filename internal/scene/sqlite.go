package scene

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

// Scene file schema. Prims are stored in depth-first order so that loading
// in id order always finds the parent before the child.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stage_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS prims (
	id INTEGER PRIMARY KEY,
	path TEXT UNIQUE NOT NULL,
	type_name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS attributes (
	prim TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	value JSON,
	custom INTEGER NOT NULL DEFAULT 0,
	uniform INTEGER NOT NULL DEFAULT 0,
	connections JSON,
	PRIMARY KEY (prim, name)
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS relationships (
	prim TEXT NOT NULL,
	name TEXT NOT NULL,
	targets JSON NOT NULL,
	PRIMARY KEY (prim, name)
) WITHOUT ROWID;
`

// SaveSQLite writes the stage to a sqlite scene file, replacing its previous
// contents in a single transaction.
func SaveSQLite(s *Stage, dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op once committed

	for _, table := range []string{"stage_meta", "prims", "attributes", "relationships"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.Exec("INSERT INTO stage_meta (key, value) VALUES ('default_prim', ?)", s.DefaultPrim()); err != nil {
		return fmt.Errorf("write default prim: %w", err)
	}

	stmtPrim, err := tx.Prepare("INSERT INTO prims (id, path, type_name) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare prims insert: %w", err)
	}
	defer func() { _ = stmtPrim.Close() }()
	stmtAttr, err := tx.Prepare(`INSERT INTO attributes (prim, name, type, value, custom, uniform, connections)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare attributes insert: %w", err)
	}
	defer func() { _ = stmtAttr.Close() }()
	stmtRel, err := tx.Prepare("INSERT INTO relationships (prim, name, targets) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare relationships insert: %w", err)
	}
	defer func() { _ = stmtRel.Close() }()

	flat := s.Flatten()
	id := 0
	err = flat.Walk(Root, func(p *Prim) error {
		if p.Path.IsRoot() {
			return nil
		}
		id++
		if _, err := stmtPrim.Exec(id, string(p.Path), p.TypeName); err != nil {
			return fmt.Errorf("insert prim %s: %w", p.Path, err)
		}
		for _, a := range p.Attributes() {
			var value any
			if a.Value != nil {
				value = oj.JSON(Generic(a.Value))
			}
			var conns any
			if len(a.Connections) > 0 {
				conns = oj.JSON(pathsToAny(a.Connections))
			}
			if _, err := stmtAttr.Exec(string(p.Path), a.Name, a.Type.String(), value,
				boolInt(a.Custom), boolInt(a.Variability == Uniform), conns); err != nil {
				return fmt.Errorf("insert attribute %s.%s: %w", p.Path, a.Name, err)
			}
		}
		for _, r := range p.Relationships() {
			if _, err := stmtRel.Exec(string(p.Path), r.Name, oj.JSON(pathsToAny(r.Targets))); err != nil {
				return fmt.Errorf("insert relationship %s.%s: %w", p.Path, r.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

// OpenSQLite loads a stage from a sqlite scene file.
func OpenSQLite(dbPath string) (*Stage, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("stat scene file: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	s := NewStage()
	var def string
	err = db.QueryRow("SELECT value FROM stage_meta WHERE key = 'default_prim'").Scan(&def)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read default prim: %w", err)
	}
	s.SetDefaultPrim(def)

	rows, err := db.Query("SELECT path, type_name FROM prims ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query prims: %w", err)
	}
	for rows.Next() {
		var path, typeName string
		if err := rows.Scan(&path, &typeName); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if _, err := s.Define(Path(path), typeName); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("load prim: %w", err)
		}
	}
	_ = rows.Close()

	if err := loadAttributes(db, s); err != nil {
		return nil, err
	}
	if err := loadRelationships(db, s); err != nil {
		return nil, err
	}
	return s, nil
}

func loadAttributes(db *sql.DB, s *Stage) error {
	rows, err := db.Query("SELECT prim, name, type, value, custom, uniform, connections FROM attributes")
	if err != nil {
		return fmt.Errorf("query attributes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var prim, name, typ string
		var value, conns sql.NullString
		var custom, uniform int
		if err := rows.Scan(&prim, &name, &typ, &value, &custom, &uniform, &conns); err != nil {
			return err
		}
		t, err := ParseValueType(typ)
		if err != nil {
			return fmt.Errorf("attribute %s.%s: %w", prim, name, err)
		}
		variability := Varying
		if uniform != 0 {
			variability = Uniform
		}
		if _, err := s.CreateAttribute(Path(prim), name, t, custom != 0, variability); err != nil {
			return err
		}
		if value.Valid {
			v, err := oj.ParseString(value.String)
			if err != nil {
				return fmt.Errorf("decode %s.%s: %w", prim, name, err)
			}
			if err := s.SetAttribute(Path(prim), name, v); err != nil {
				return err
			}
		}
		if conns.Valid {
			ps, err := decodePaths(conns.String)
			if err != nil {
				return fmt.Errorf("decode %s.%s connections: %w", prim, name, err)
			}
			if err := s.SetConnections(Path(prim), name, ps); err != nil {
				return err
			}
		}
	}
	return rows.Err()
}

func loadRelationships(db *sql.DB, s *Stage) error {
	rows, err := db.Query("SELECT prim, name, targets FROM relationships")
	if err != nil {
		return fmt.Errorf("query relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var prim, name, targets string
		if err := rows.Scan(&prim, &name, &targets); err != nil {
			return err
		}
		ps, err := decodePaths(targets)
		if err != nil {
			return fmt.Errorf("decode %s.%s: %w", prim, name, err)
		}
		if err := s.SetRelationship(Path(prim), name, ps); err != nil {
			return err
		}
	}
	return rows.Err()
}

func decodePaths(js string) ([]Path, error) {
	v, err := oj.ParseString(js)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %T", ErrTypeMismatch, v)
	}
	out := make([]Path, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string, got %T", ErrTypeMismatch, e)
		}
		out = append(out, Path(s))
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
