package wanikani

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	// MinLevel and MaxLevel bound the levels found in WaniKani data.
	MinLevel = 1
	MaxLevel = 60
)

// Levels is reference data as published: level -> items taught at that level.
type Levels map[int][]string

// Reference is the inverted lookup used for analysis: item -> level.
// It is built once and never modified afterwards.
type Reference struct {
	Kanji map[string]int
	Vocab map[string]int
	// Duplicates lists items that appeared under more than one level and how
	// they were resolved. Empty unless the data has such items.
	Duplicates []Duplicate
}

// DuplicatePolicy decides what happens when one item is listed under several levels.
type DuplicatePolicy int

const (
	// KeepLowest keeps the earliest level an item is taught at.
	KeepLowest DuplicatePolicy = iota
	// RejectDuplicates fails the load with a *DuplicateError.
	RejectDuplicates
)

// Duplicate describes an item found under several levels.
type Duplicate struct {
	Item   string
	Levels []int
	Kept   int
}

// DuplicateError is returned under RejectDuplicates.
type DuplicateError struct {
	Item   string
	Levels []int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("item %q listed under levels %v", e.Item, e.Levels)
}

// LevelError reports a level key that is not an integer in range.
type LevelError struct {
	Key string
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("invalid level %q (want %d-%d)", e.Key, MinLevel, MaxLevel)
}

type options struct {
	policy DuplicatePolicy
}

// Option configures Load.
type Option func(*options)

// WithPolicy sets the duplicate policy. The default is KeepLowest.
func WithPolicy(p DuplicatePolicy) Option {
	return func(o *options) { o.policy = p }
}

// Load reads the kanji and vocabulary files and inverts them into a Reference.
func Load(kanjiPath, vocabPath string, opts ...Option) (*Reference, error) {
	o := options{policy: KeepLowest}
	for _, opt := range opts {
		opt(&o)
	}

	kanjiLevels, err := LoadLevels(kanjiPath)
	if err != nil {
		return nil, fmt.Errorf("load kanji: %w", err)
	}
	vocabLevels, err := LoadLevels(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocab: %w", err)
	}

	kanji, kd, err := Invert(kanjiLevels, o.policy)
	if err != nil {
		return nil, fmt.Errorf("kanji %s: %w", kanjiPath, err)
	}
	vocab, vd, err := Invert(vocabLevels, o.policy)
	if err != nil {
		return nil, fmt.Errorf("vocab %s: %w", vocabPath, err)
	}
	return &Reference{Kanji: kanji, Vocab: vocab, Duplicates: append(kd, vd...)}, nil
}

// LoadLevels reads one reference file.
func LoadLevels(path string) (Levels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeLevels(f)
}

// DecodeLevels parses reference data. Two layouts are accepted: an object
// keyed by level ({"1": ["一", ...]}) and an array whose i-th element holds
// the items of level i+1.
func DecodeLevels(r io.Reader) (Levels, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var byKey map[string][]string
	if err := json.Unmarshal(raw, &byKey); err == nil {
		levels := make(Levels, len(byKey))
		for key, items := range byKey {
			lvl, err := parseLevel(key)
			if err != nil {
				return nil, err
			}
			levels[lvl] = append(levels[lvl], items...)
		}
		return levels, nil
	}

	var byIndex [][]string
	if err := json.Unmarshal(raw, &byIndex); err != nil {
		return nil, fmt.Errorf("failed to parse reference data as object or array: %w", err)
	}
	if len(byIndex) > MaxLevel {
		return nil, &LevelError{Key: strconv.Itoa(len(byIndex))}
	}
	levels := make(Levels, len(byIndex))
	for i, items := range byIndex {
		levels[i+1] = items
	}
	return levels, nil
}

func parseLevel(key string) (int, error) {
	lvl, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || lvl < MinLevel || lvl > MaxLevel {
		return 0, &LevelError{Key: key}
	}
	return lvl, nil
}

// Invert turns level -> items into item -> level. Levels are visited in
// ascending order so the result does not depend on map iteration.
func Invert(levels Levels, policy DuplicatePolicy) (map[string]int, []Duplicate, error) {
	keys := make([]int, 0, len(levels))
	for lvl := range levels {
		keys = append(keys, lvl)
	}
	sort.Ints(keys)

	out := make(map[string]int)
	seen := make(map[string][]int)
	for _, lvl := range keys {
		if lvl < MinLevel || lvl > MaxLevel {
			return nil, nil, &LevelError{Key: strconv.Itoa(lvl)}
		}
		for _, item := range levels[lvl] {
			if item == "" {
				continue
			}
			seen[item] = append(seen[item], lvl)
			if _, ok := out[item]; !ok {
				out[item] = lvl
			}
		}
	}

	var dups []Duplicate
	for item, lv := range seen {
		if len(lv) < 2 || allEqual(lv) {
			continue
		}
		dups = append(dups, Duplicate{Item: item, Levels: lv, Kept: out[item]})
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].Item < dups[j].Item })
	if policy == RejectDuplicates && len(dups) > 0 {
		return nil, nil, &DuplicateError{Item: dups[0].Item, Levels: dups[0].Levels}
	}
	return out, dups, nil
}

func allEqual(v []int) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
