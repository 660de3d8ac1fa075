package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/jplevel/pkg/level"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, sourceType, title, location string) (int64, error) {
	trimmedSourceType := strings.TrimSpace(sourceType)
	if trimmedSourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(
			`SELECT id FROM sources WHERE source_type = ? AND IFNULL(location, '') = ? AND IFNULL(title, '') = ?`,
			trimmedSourceType, location, title,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, location, added_at) VALUES (?, ?, ?, ?)`,
			trimmedSourceType, title, location, time.Now().UTC(),
		)
		if err != nil {
			// If another concurrent transaction inserted the same source, retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// SaveAnalysis stores a result for sourceID and returns the new row id.
func SaveAnalysis(db DBExecutor, sourceID int64, r level.Result, textLength int) (int64, error) {
	if sourceID <= 0 {
		return 0, fmt.Errorf("sourceID must be positive")
	}
	kanji, err := encodeProfile(r.Kanji)
	if err != nil {
		return 0, fmt.Errorf("encode kanji profile: %w", err)
	}
	vocab, err := encodeProfile(r.Vocab)
	if err != nil {
		return 0, fmt.Errorf("encode vocab profile: %w", err)
	}
	res, err := db.Exec(
		`INSERT INTO analyses (source_id, kanji_profile, vocab_profile, kanji_count, vocab_count, text_length, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sourceID, kanji, vocab, r.KanjiCount, r.VocabCount, textLength, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	return res.LastInsertId()
}

// LatestAnalysis returns the most recent analysis stored for a source.
// It returns sql.ErrNoRows when the source has none.
func LatestAnalysis(db DBExecutor, sourceID int64) (Analysis, error) {
	row := db.QueryRow(analysisSelect+` WHERE a.source_id = ? ORDER BY a.created_at DESC, a.id DESC LIMIT 1`, sourceID)
	return scanAnalysis(row)
}

// ListAnalyses returns the newest analyses first. A limit of zero or less
// returns all rows.
func ListAnalyses(db DBExecutor, limit int) ([]Analysis, error) {
	q := analysisSelect + ` ORDER BY a.created_at DESC, a.id DESC`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const analysisSelect = `SELECT a.id, a.source_id, a.kanji_profile, a.vocab_profile, a.kanji_count, a.vocab_count,
	a.text_length, a.created_at, s.source_type, s.title, s.location, s.added_at
	FROM analyses a JOIN sources s ON s.id = a.source_id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row scanner) (Analysis, error) {
	var a Analysis
	var s Source
	var kanji, vocab string
	var title, location sql.NullString
	err := row.Scan(&a.ID, &a.SourceID, &kanji, &vocab, &a.KanjiCount, &a.VocabCount,
		&a.TextLength, &a.CreatedAt, &s.SourceType, &title, &location, &s.AddedAt)
	if err != nil {
		return Analysis{}, err
	}
	if a.Kanji, err = decodeProfile(kanji); err != nil {
		return Analysis{}, fmt.Errorf("decode kanji profile %d: %w", a.ID, err)
	}
	if a.Vocab, err = decodeProfile(vocab); err != nil {
		return Analysis{}, fmt.Errorf("decode vocab profile %d: %w", a.ID, err)
	}
	s.ID = a.SourceID
	s.Title = title.String
	s.Location = location.String
	a.Source = &s
	return a, nil
}

func encodeProfile(p level.Profile) (string, error) {
	if p == nil {
		p = level.Profile{}
	}
	b, err := json.Marshal(p)
	return string(b), err
}

func decodeProfile(s string) (level.Profile, error) {
	p := level.Profile{}
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	return p, nil
}
