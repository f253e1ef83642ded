package mongorepos

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/kusoma/core/user"
)

// decodeResults turns the stored `result` field into the tagged history.
// This is the only place that looks at the stored shape.
func decodeResults(v interface{}) user.ResultHistory {
	switch val := v.(type) {
	case primitive.A:
		return sequenceResults([]interface{}(val))
	case []interface{}:
		return sequenceResults(val)
	case primitive.D:
		return mappedResults(val.Map())
	case primitive.M:
		return mappedResults(val)
	case map[string]interface{}:
		return mappedResults(val)
	default:
		return user.ResultHistory{Kind: user.NoResults}
	}
}

func sequenceResults(items []interface{}) user.ResultHistory {
	rh := user.ResultHistory{
		Kind:   user.ResultSequence,
		Scores: make([]user.QuizScore, 0, len(items)),
		Raw:    plain(items),
	}
	rh.BareMarks = len(items) > 0
	for i, item := range items {
		if _, ok := number(item); !ok {
			rh.BareMarks = false
		}
		rh.Scores = append(rh.Scores, user.QuizScore{Key: i, Marks: scoreOf(item)})
	}
	return rh
}

func mappedResults(items map[string]interface{}) user.ResultHistory {
	rh := user.ResultHistory{
		Kind:   user.ResultMapping,
		Scores: make([]user.QuizScore, 0, len(items)),
		Raw:    plain(items),
	}
	for k, item := range items {
		key, err := strconv.Atoi(k)
		if err != nil || key < 0 || strconv.Itoa(key) != k {
			continue // not a quiz index ("-1", "+2" and "01" included)
		}
		rh.Scores = append(rh.Scores, user.QuizScore{Key: key, Marks: scoreOf(item)})
	}
	return rh.Normalize()
}

// scoreOf reads the marks of one stored entry: a bare number or a document with a `score`.
func scoreOf(v interface{}) float64 {
	switch val := v.(type) {
	case primitive.D:
		return scoreOf(val.Map()["score"])
	case primitive.M:
		return scoreOf(val["score"])
	case map[string]interface{}:
		return scoreOf(val["score"])
	default:
		if n, ok := number(val); ok {
			return n
		}
		return 0
	}
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// plain converts decoded BSON values into JSON-friendly ones.
func plain(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.D:
		return plain(val.Map())
	case primitive.M:
		return plain(map[string]interface{}(val))
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[k] = plain(item)
		}
		return m
	case primitive.A:
		return plain([]interface{}(val))
	case []interface{}:
		s := make([]interface{}, 0, len(val))
		for _, item := range val {
			s = append(s, plain(item))
		}
		return s
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Decimal128:
		return val.String()
	default:
		return val
	}
}
