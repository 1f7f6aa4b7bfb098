package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/crec/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS speeches (
	ord INTEGER PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	document_id TEXT NOT NULL,
	source_file TEXT,
	date TEXT NOT NULL,
	chamber TEXT,
	speaker TEXT,
	speaker_bioguide TEXT,
	title TEXT,
	position INTEGER NOT NULL DEFAULT 0,
	text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_speeches_document_id ON speeches(document_id);
CREATE INDEX IF NOT EXISTS idx_speeches_date ON speeches(date);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

func writeSQLite(ctx context.Context, path string, ds *Dataset) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO speeches (ord, id, document_id, source_file, date, chamber, speaker, speaker_bioguide, title, position, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range ds.Records {
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.DocumentID, r.SourceFile, r.Date, r.Chamber,
			r.Speaker, r.SpeakerBioguide, r.Title, r.Position, r.Text); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
	}
	for _, kv := range ds.Meta.pairs() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to insert meta %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}

func readSQLite(ctx context.Context, path string) (*Dataset, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ds := &Dataset{}
	rows, err := db.QueryContext(ctx,
		`SELECT id, document_id, source_file, date, chamber, speaker, speaker_bioguide, title, position, text
		 FROM speeches ORDER BY ord`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query speeches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.SpeechRecord
		var sourceFile, chamber, speaker, bioguide, title sql.NullString
		if err := rows.Scan(&r.ID, &r.DocumentID, &sourceFile, &r.Date, &chamber, &speaker,
			&bioguide, &title, &r.Position, &r.Text); err != nil {
			return nil, err
		}
		r.SourceFile = sourceFile.String
		r.Chamber = chamber.String
		r.Speaker = speaker.String
		r.SpeakerBioguide = bioguide.String
		r.Title = title.String
		ds.Records = append(ds.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	metaRows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var key string
		var value sql.NullString
		if err := metaRows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if err := ds.Meta.set(key, value.String); err != nil {
			return nil, err
		}
	}
	return ds, metaRows.Err()
}
