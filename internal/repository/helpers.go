package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/slmes-creator/job-posting/internal/oxidb"
)

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate record")

func translate(err error) error {
	var conflict *oxidb.ConflictError
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %s", ErrDuplicate, conflict.Msg)
	}
	return err
}

// normalizeID converts the _id field from numeric (float64) to string
// since OxiDB returns auto-increment numeric IDs.
func normalizeID(doc map[string]any) {
	if id, ok := doc["_id"]; ok {
		switch v := id.(type) {
		case float64:
			doc["_id"] = fmt.Sprintf("%.0f", v)
		case int:
			doc["_id"] = fmt.Sprintf("%d", v)
		}
	}
}

// extractID gets the inserted document ID from an OxiDB insert response.
func extractID(result map[string]any) string {
	if id, ok := result["id"]; ok {
		switch v := id.(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// toNumericID converts a string ID to float64 for OxiDB queries.
func toNumericID(id string) any {
	if n, err := strconv.ParseFloat(id, 64); err == nil {
		return n
	}
	return id
}

func byID(id string) map[string]any {
	return map[string]any{"_id": toNumericID(id)}
}

// toDoc flattens a model into a document without its _id.
func toDoc(v any) map[string]any {
	data, _ := json.Marshal(v)
	var doc map[string]any
	json.Unmarshal(data, &doc)
	delete(doc, "_id")
	return doc
}

func fromDoc[T any](doc map[string]any) (*T, error) {
	normalizeID(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal doc: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", out, err)
	}
	return &out, nil
}

// fromDocs decodes a result set, skipping documents that do not decode.
func fromDocs[T any](docs []map[string]any) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := fromDoc[T](d)
		if err != nil {
			continue
		}
		out = append(out, *v)
	}
	return out
}

func newestFirst(field string, limit int) *oxidb.FindOptions {
	opts := &oxidb.FindOptions{Sort: map[string]any{field: -1}}
	if limit > 0 {
		opts.Limit = &limit
	}
	return opts
}
