package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pubchemscan/internal/model"
)

// FileName is the SQLite database file name inside the database directory.
const FileName = "pubchemscan.db"

// Relation types stored in the relations table.
const (
	RelationParent    = "parent"
	RelationRelated   = "related"
	RelationSubstance = "substance"
)

// CompoundDB provides SQLite-based storage for extraction results.
// It is safe for concurrent use.
type CompoundDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CompoundDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CompoundDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CompoundDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CompoundDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CompoundDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CompoundDB) Path() string {
	return cdb.dbPath
}

func (cdb *CompoundDB) createTables() error {
	schema := `
	-- Latest result per compound; this is the lookup cache
	CREATE TABLE IF NOT EXISTS compounds (
		cid INTEGER PRIMARY KEY,
		title TEXT,
		molecular_formula TEXT NOT NULL,
		result_json TEXT NOT NULL,
		result_hash TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Every saved extraction
	CREATE TABLE IF NOT EXISTS lookups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cid INTEGER NOT NULL,
		title TEXT,
		result_json TEXT NOT NULL,
		result_hash TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lookups_cid ON lookups(cid);

	-- Related identifiers of the latest result per compound
	CREATE TABLE IF NOT EXISTS relations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cid INTEGER NOT NULL,
		type TEXT NOT NULL,
		group_index INTEGER NOT NULL DEFAULT 0,
		identifier TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_relations_cid ON relations(cid);
	CREATE INDEX IF NOT EXISTS idx_relations_identifier ON relations(identifier);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// HashResult returns the hex SHA3-256 digest of data.
func HashResult(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveLookup stores a successful extraction: it appends to the history,
// replaces the cached compound row, and replaces the compound's relations.
// lookup.ID and lookup.Hash are set on success.
func (cdb *CompoundDB) SaveLookup(ctx context.Context, lookup *model.Lookup) error {
	if lookup == nil || lookup.Result == nil {
		return errors.New("lookup has no result")
	}

	resultJSON, err := lookup.Result.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}
	hash := HashResult(resultJSON)
	fetchedAt := lookup.FetchedAt.UTC().Format(time.RFC3339Nano)

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO lookups (cid, title, result_json, result_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?)
	`, lookup.CID, lookup.Title, string(resultJSON), hash, fetchedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lookup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read lookup id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO compounds (cid, title, molecular_formula, result_json, result_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(cid) DO UPDATE SET
		title = excluded.title,
		molecular_formula = excluded.molecular_formula,
		result_json = excluded.result_json,
		result_hash = excluded.result_hash,
		fetched_at = excluded.fetched_at,
		updated_at = CURRENT_TIMESTAMP
	`, lookup.CID, lookup.Title, lookup.Result.MolecularFormula, string(resultJSON), hash, fetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert compound: %w", err)
	}

	if err := replaceRelations(ctx, tx, lookup.CID, lookup.Result.Related); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lookup: %w", err)
	}

	lookup.ID = id
	lookup.Hash = hash
	return nil
}

func replaceRelations(ctx context.Context, tx *sql.Tx, cid int, related model.RelatedRecords) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE cid = ?`, cid); err != nil {
		return fmt.Errorf("failed to clear relations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO relations (cid, type, group_index, identifier)
	VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare relation insert: %w", err)
	}
	defer stmt.Close()

	insert := func(relType string, group int, identifier string) error {
		if _, err := stmt.ExecContext(ctx, cid, relType, group, identifier); err != nil {
			return fmt.Errorf("failed to insert relation: %w", err)
		}
		return nil
	}

	for _, p := range related.Parents {
		if err := insert(RelationParent, 0, fmt.Sprint(p)); err != nil {
			return err
		}
	}
	for g, ids := range related.RelatedIDs {
		for _, id := range ids {
			if err := insert(RelationRelated, g, id); err != nil {
				return err
			}
		}
	}
	for g, ids := range related.SubstanceIDs {
		for _, id := range ids {
			if err := insert(RelationSubstance, g, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetCompound returns the cached lookup for cid, or nil if none is stored.
func (cdb *CompoundDB) GetCompound(ctx context.Context, cid int) (*model.Lookup, error) {
	query := `
	SELECT cid, title, result_json, result_hash, fetched_at
	FROM compounds
	WHERE cid = ?
	`

	var (
		lookup     model.Lookup
		title      sql.NullString
		resultJSON string
		fetchedAt  string
	)
	err := cdb.db.QueryRowContext(ctx, query, cid).Scan(
		&lookup.CID,
		&title,
		&resultJSON,
		&lookup.Hash,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compound: %w", err)
	}

	result, err := decodeResult(resultJSON)
	if err != nil {
		return nil, err
	}
	lookup.Title = title.String
	lookup.Result = result
	lookup.FetchedAt = parseTimestamp(fetchedAt)
	lookup.Cached = true
	return &lookup, nil
}

// GetFreshCompound returns the cached lookup for cid if it was fetched
// within maxAge. A maxAge of zero or less accepts any age.
func (cdb *CompoundDB) GetFreshCompound(ctx context.Context, cid int, maxAge time.Duration) (*model.Lookup, error) {
	lookup, err := cdb.GetCompound(ctx, cid)
	if err != nil || lookup == nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(lookup.FetchedAt) > maxAge {
		return nil, nil
	}
	return lookup, nil
}

// CompoundSummary describes one cached compound without its full result.
type CompoundSummary struct {
	// CID is the compound identifier.
	CID int

	// Title is the PubChem record title.
	Title string

	// MolecularFormula is the cached formula.
	MolecularFormula string

	// FetchedAt is when the cached result was fetched.
	FetchedAt time.Time

	// Lookups is how many extractions are stored in the history.
	Lookups int
}

// ListCompounds returns every cached compound ordered by CID.
func (cdb *CompoundDB) ListCompounds(ctx context.Context) ([]CompoundSummary, error) {
	query := `
	SELECT c.cid, c.title, c.molecular_formula, c.fetched_at,
		(SELECT COUNT(*) FROM lookups l WHERE l.cid = c.cid)
	FROM compounds c
	ORDER BY c.cid
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list compounds: %w", err)
	}
	defer rows.Close()

	var results []CompoundSummary
	for rows.Next() {
		var (
			s         CompoundSummary
			title     sql.NullString
			fetchedAt string
		)
		if err := rows.Scan(&s.CID, &title, &s.MolecularFormula, &fetchedAt, &s.Lookups); err != nil {
			return nil, fmt.Errorf("failed to scan compound: %w", err)
		}
		s.Title = title.String
		s.FetchedAt = parseTimestamp(fetchedAt)
		results = append(results, s)
	}
	return results, rows.Err()
}

// LookupMetadata contains summary information about one stored lookup.
type LookupMetadata struct {
	// ID is the history row identifier.
	ID int64

	// CID is the compound identifier.
	CID int

	// Hash is the SHA3-256 digest of the serialized result.
	Hash string

	// FetchedAt is when the result was fetched.
	FetchedAt time.Time
}

// GetLookupHistory returns the stored lookups for cid, newest first.
func (cdb *CompoundDB) GetLookupHistory(ctx context.Context, cid int) ([]LookupMetadata, error) {
	query := `
	SELECT id, cid, result_hash, fetched_at
	FROM lookups
	WHERE cid = ?
	ORDER BY id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to get lookup history: %w", err)
	}
	defer rows.Close()

	var results []LookupMetadata
	for rows.Next() {
		var (
			meta      LookupMetadata
			fetchedAt string
		)
		if err := rows.Scan(&meta.ID, &meta.CID, &meta.Hash, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lookup metadata: %w", err)
		}
		meta.FetchedAt = parseTimestamp(fetchedAt)
		results = append(results, meta)
	}
	return results, rows.Err()
}

// GetLookupByID returns one stored lookup, or nil if id does not exist.
func (cdb *CompoundDB) GetLookupByID(ctx context.Context, id int64) (*model.Lookup, error) {
	query := `
	SELECT id, cid, title, result_json, result_hash, fetched_at
	FROM lookups
	WHERE id = ?
	`

	var (
		lookup     model.Lookup
		title      sql.NullString
		resultJSON string
		fetchedAt  string
	)
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(
		&lookup.ID,
		&lookup.CID,
		&title,
		&resultJSON,
		&lookup.Hash,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lookup: %w", err)
	}

	result, err := decodeResult(resultJSON)
	if err != nil {
		return nil, err
	}
	lookup.Title = title.String
	lookup.Result = result
	lookup.FetchedAt = parseTimestamp(fetchedAt)
	lookup.Cached = true
	return &lookup, nil
}

// Relation is one related identifier of a cached compound.
type Relation struct {
	CID        int
	Type       string
	Group      int
	Identifier string
}

// FindReferencing returns the relations whose identifier equals identifier,
// optionally filtered by type.
func (cdb *CompoundDB) FindReferencing(ctx context.Context, identifier, relType string) ([]Relation, error) {
	query := `
	SELECT cid, type, group_index, identifier
	FROM relations
	WHERE identifier = ?
	`
	args := []any{identifier}
	if relType != "" {
		query += " AND type = ?"
		args = append(args, relType)
	}
	query += " ORDER BY cid, type, group_index"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var results []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.CID, &r.Type, &r.Group, &r.Identifier); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func decodeResult(resultJSON string) (*model.CompoundResult, error) {
	result := model.NewCompoundResult()
	if err := json.Unmarshal([]byte(resultJSON), result); err != nil {
		return nil, fmt.Errorf("failed to parse stored result: %w", err)
	}
	return result, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
