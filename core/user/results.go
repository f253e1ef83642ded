package user

import (
	"encoding/json"
	"sort"
	"strconv"
)

// ResultKind tags how a result history is stored.
type ResultKind uint8

const (
	NoResults ResultKind = iota
	ResultSequence
	ResultMapping
)

func (k ResultKind) String() string {
	switch k {
	case ResultSequence:
		return "sequence"
	case ResultMapping:
		return "mapping"
	default:
		return "none"
	}
}

// QuizScore is a single stored quiz result.
// Key is the position for a sequence and the numeric key for a mapping.
type QuizScore struct {
	Key   int
	Marks float64
}

// ResultHistory is the tagged form of a user's quiz results.
// It is built once at the storage boundary; Scores are always sorted by Key.
type ResultHistory struct {
	Kind   ResultKind
	Scores []QuizScore
	Raw    interface{} // as stored; echoed back to clients
	// BareMarks is set when a sequence holds plain numbers instead of {score} documents.
	BareMarks bool
}

// ResultEntry is a quiz result about to be appended to a stored history.
type ResultEntry struct {
	Kind  ResultKind // never NoResults
	Key   int
	Marks float64
	Bare  bool // store a plain number rather than a {score} document (sequences only)
}

// NewSequenceResults builds a history stored as an ordered list of marks.
func NewSequenceResults(marks ...float64) ResultHistory {
	scores := make([]QuizScore, 0, len(marks))
	raw := make([]interface{}, 0, len(marks))
	for i, m := range marks {
		scores = append(scores, QuizScore{Key: i, Marks: m})
		raw = append(raw, m)
	}
	return ResultHistory{Kind: ResultSequence, Scores: scores, Raw: raw, BareMarks: len(marks) > 0}
}

// NewMappedResults builds a history stored as a mapping of numeric keys to marks.
func NewMappedResults(marks map[int]float64) ResultHistory {
	scores := make([]QuizScore, 0, len(marks))
	raw := make(map[string]interface{}, len(marks))
	for k, m := range marks {
		scores = append(scores, QuizScore{Key: k, Marks: m})
		raw[strconv.Itoa(k)] = m
	}
	rh := ResultHistory{Kind: ResultMapping, Scores: scores, Raw: raw}
	rh.sort()
	return rh
}

func (rh *ResultHistory) sort() {
	sort.SliceStable(rh.Scores, func(i, j int) bool { return rh.Scores[i].Key < rh.Scores[j].Key })
}

// Normalize sorts the scores by key. Storage adapters call it after decoding.
func (rh ResultHistory) Normalize() ResultHistory {
	scores := make([]QuizScore, len(rh.Scores))
	copy(scores, rh.Scores)
	rh.Scores = scores
	rh.sort()
	return rh
}

// Performance returns the graph series: quiz number is the key plus one.
func (rh ResultHistory) Performance() []PerformancePoint {
	points := make([]PerformancePoint, 0, len(rh.Scores))
	for _, s := range rh.Scores {
		points = append(points, PerformancePoint{QuizNumber: s.Key + 1, Marks: s.Marks})
	}
	return points
}

// NextKey is the key the next recorded result gets.
func (rh ResultHistory) NextKey() int {
	if n := len(rh.Scores); n > 0 {
		return rh.Scores[n-1].Key + 1
	}
	return 0
}

// Next describes how `marks` is appended without changing the stored shape.
// A history with no results starts a sequence of {score} documents.
func (rh ResultHistory) Next(marks float64) ResultEntry {
	entry := ResultEntry{Kind: rh.Kind, Key: rh.NextKey(), Marks: marks}
	switch rh.Kind {
	case NoResults:
		entry.Kind = ResultSequence
	case ResultSequence:
		entry.Bare = rh.BareMarks
	}
	return entry
}

// MarshalJSON echoes the history in its stored shape (null when there is none).
func (rh ResultHistory) MarshalJSON() ([]byte, error) {
	if rh.Kind == NoResults {
		return []byte("null"), nil
	}
	return json.Marshal(rh.Raw)
}
