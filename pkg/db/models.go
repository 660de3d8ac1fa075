package db

import (
	"time"

	"github.com/japaniel/jplevel/pkg/level"
)

// Source is a provenance record for an analysed text.
type Source struct {
	ID         int64
	SourceType string
	Title      string
	Location   string
	AddedAt    time.Time
}

// Analysis is one stored result for a source.
type Analysis struct {
	ID         int64
	SourceID   int64
	Kanji      level.Profile
	Vocab      level.Profile
	KanjiCount int
	VocabCount int
	TextLength int
	CreatedAt  time.Time
	// Source is filled by queries that join on sources.
	Source *Source
}
