package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS fingerprints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		source_prefix TEXT NOT NULL DEFAULT '',
		name TEXT,
		format TEXT,
		width INTEGER,
		height INTEGER,
		created_at TEXT,
		modified_at TEXT,
		size INTEGER,
		color_hash TEXT,
		structure_hash TEXT,
		edge_hash TEXT,
		content_hash TEXT,
		fingerprint TEXT,
		metadata TEXT,
		thumbnail BLOB,
		UNIQUE(path, source_prefix)
	);
	CREATE INDEX IF NOT EXISTS idx_fp_path ON fingerprints(path);
	CREATE INDEX IF NOT EXISTS idx_fp_fingerprint ON fingerprints(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_fp_content_hash ON fingerprints(content_hash);`

// columns added after the first schema version
var laterColumns = map[string]string{
	"average_color": "ALTER TABLE fingerprints ADD COLUMN average_color TEXT;",
}

// InitDatabase opens dbPath and creates or upgrades the schema
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, storageError("open", err)
	}

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, storageError("create schema", err)
	}

	for column, ddl := range laterColumns {
		var hasColumn bool
		err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('fingerprints') WHERE name = ?", column).Scan(&hasColumn)
		if err != nil {
			db.Close()
			return nil, storageError("check column "+column, err)
		}
		if hasColumn {
			continue
		}
		if _, err = db.Exec(ddl); err != nil {
			db.Close()
			return nil, storageError("add column "+column, err)
		}
		logging.DebugLog("Added '%s' column to existing database schema", column)
	}

	return db, nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

func storageError(op string, err error) error {
	return apperrors.New(apperrors.CategoryStorage, op, "", err)
}

// CheckImageExists reports whether path is stored under sourcePrefix and,
// if so, the stored modification time.
func CheckImageExists(db *sql.DB, path string, sourcePrefix string) (bool, time.Time, error) {
	var storedModTime string
	err := db.QueryRow("SELECT modified_at FROM fingerprints WHERE path = ? AND source_prefix = ?",
		path, sourcePrefix).Scan(&storedModTime)
	if err == sql.ErrNoRows {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("database error for %s: %w", path, err)
	}

	modTime, err := time.Parse(time.RFC3339Nano, storedModTime)
	if err != nil {
		return true, time.Time{}, fmt.Errorf("cannot parse stored time for %s: %w", path, err)
	}
	return true, modTime, nil
}

// StoreFingerprint inserts fp under sourcePrefix, replacing an older record for the same path
func StoreFingerprint(db *sql.DB, fp types.ImageFingerprint, sourcePrefix string) error {
	metadata, err := json.Marshal(fp.Metadata)
	if err != nil {
		return fmt.Errorf("cannot encode metadata for %s: %w", fp.Path, err)
	}
	avgColor, err := json.Marshal(fp.AverageColor)
	if err != nil {
		return fmt.Errorf("cannot encode average color for %s: %w", fp.Path, err)
	}

	stmt, err := db.Prepare(`
		INSERT OR REPLACE INTO fingerprints (
			path, source_prefix, name, format, width, height, created_at, modified_at, size,
			color_hash, structure_hash, edge_hash, content_hash, fingerprint,
			metadata, thumbnail, average_color
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %w", fp.Path, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		fp.Path,
		sourcePrefix,
		fp.Name,
		fp.Format,
		fp.Width,
		fp.Height,
		time.Now().Format(time.RFC3339),
		fp.ModifiedTime.Format(time.RFC3339Nano),
		fp.SizeBytes,
		fp.Hashes.Color,
		fp.Hashes.Structure,
		fp.Hashes.Edge,
		fp.Hashes.Content,
		fp.Hashes.Fingerprint,
		string(metadata),
		fp.Thumbnail,
		string(avgColor),
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", fp.Path, err)
	}
	return nil
}

const selectColumns = `path, source_prefix, name, format, width, height, modified_at, size,
	color_hash, structure_hash, edge_hash, content_hash, fingerprint, metadata, thumbnail, average_color`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFingerprint(row rowScanner) (types.ImageMatch, error) {
	var (
		match                    types.ImageMatch
		fp                       types.ImageFingerprint
		name, format, modifiedAt sql.NullString
		metadata, avgColor       sql.NullString
		color, structure, edge   sql.NullString
		content, fingerprint     sql.NullString
		width, height, size      sql.NullInt64
	)

	err := row.Scan(&fp.Path, &match.SourcePrefix, &name, &format, &width, &height, &modifiedAt, &size,
		&color, &structure, &edge, &content, &fingerprint, &metadata, &fp.Thumbnail, &avgColor)
	if err != nil {
		return match, err
	}

	fp.Name = name.String
	fp.Format = format.String
	fp.Width = int(width.Int64)
	fp.Height = int(height.Int64)
	fp.SizeBytes = size.Int64
	fp.Hashes = types.Hashes{
		Color:       color.String,
		Structure:   structure.String,
		Edge:        edge.String,
		Content:     content.String,
		Fingerprint: fingerprint.String,
	}
	if modifiedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, modifiedAt.String); err == nil {
			fp.ModifiedTime = t
		}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &fp.Metadata); err != nil {
			logging.DebugLog("Ignoring unreadable metadata for %s: %v", fp.Path, err)
		}
	}
	if avgColor.Valid && avgColor.String != "" {
		if err := json.Unmarshal([]byte(avgColor.String), &fp.AverageColor); err != nil {
			logging.DebugLog("Ignoring unreadable average color for %s: %v", fp.Path, err)
		}
	}

	match.Path = fp.Path
	match.Fingerprint = fp
	return match, nil
}

// LoadFingerprints returns every stored record, or only those under sourcePrefix when it is set
func LoadFingerprints(db *sql.DB, sourcePrefix string) ([]types.ImageMatch, error) {
	query := "SELECT " + selectColumns + " FROM fingerprints"
	var args []interface{}
	if sourcePrefix != "" {
		query += " WHERE source_prefix = ?"
		args = append(args, sourcePrefix)
	}
	query += " ORDER BY path"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var matches []types.ImageMatch
	for rows.Next() {
		m, err := scanFingerprint(rows)
		if err != nil {
			logging.LogError("Error scanning row: %v", err)
			continue
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetFingerprint loads a single record
func GetFingerprint(db *sql.DB, path, sourcePrefix string) (types.ImageFingerprint, bool, error) {
	row := db.QueryRow("SELECT "+selectColumns+" FROM fingerprints WHERE path = ? AND source_prefix = ?",
		path, sourcePrefix)
	m, err := scanFingerprint(row)
	if err == sql.ErrNoRows {
		return types.ImageFingerprint{}, false, nil
	}
	if err != nil {
		return types.ImageFingerprint{}, false, fmt.Errorf("database error for %s: %w", path, err)
	}
	return m.Fingerprint, true, nil
}

// DuplicateGroup is a set of stored paths sharing one composite fingerprint
type DuplicateGroup struct {
	Fingerprint string
	Paths       []string
}

// FindExactDuplicates groups stored records by identical fingerprint
func FindExactDuplicates(db *sql.DB, sourcePrefix string) ([]DuplicateGroup, error) {
	query := `SELECT fingerprint, path FROM fingerprints
		WHERE fingerprint IN (
			SELECT fingerprint FROM fingerprints
			WHERE (source_prefix = ? OR ? = '') AND fingerprint != ''
			GROUP BY fingerprint HAVING COUNT(*) > 1
		) AND (source_prefix = ? OR ? = '')
		ORDER BY fingerprint, path`

	rows, err := db.Query(query, sourcePrefix, sourcePrefix, sourcePrefix, sourcePrefix)
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var fingerprint, path string
		if err := rows.Scan(&fingerprint, &path); err != nil {
			return nil, err
		}
		if len(groups) == 0 || groups[len(groups)-1].Fingerprint != fingerprint {
			groups = append(groups, DuplicateGroup{Fingerprint: fingerprint})
		}
		last := &groups[len(groups)-1]
		last.Paths = append(last.Paths, path)
	}
	return groups, rows.Err()
}

// ScanStats contains statistics about stored fingerprints
type ScanStats struct {
	TotalImages        int
	UniqueFingerprints int
	DuplicateGroups    int
	TotalBytes         int64
}

// GetScanStats retrieves statistics about scanned images
func GetScanStats(db *sql.DB, sourcePrefix string) (*ScanStats, error) {
	var stats ScanStats

	where := ""
	var args []interface{}
	if sourcePrefix != "" {
		where = " WHERE source_prefix = ?"
		args = append(args, sourcePrefix)
	}

	err := db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT fingerprint), COALESCE(SUM(size), 0) FROM fingerprints"+where, args...).
		Scan(&stats.TotalImages, &stats.UniqueFingerprints, &stats.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}

	groups, err := FindExactDuplicates(db, sourcePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get duplicates: %w", err)
	}
	stats.DuplicateGroups = len(groups)

	return &stats, nil
}
