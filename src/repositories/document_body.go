package repositories

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DecodeBody parses a flat JSON object into its top-level fields, keeping
// each value in its raw encoding.
func DecodeBody(body json.RawMessage) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if len(body) == 0 {
		return fields, nil
	}

	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("document body must be a JSON object: %w", err)
	}

	return fields, nil
}

// MergeBodies overlays the fields of incoming on existing. Fields missing
// from incoming keep their stored value. The result has sorted keys, so
// merging the same input twice yields the same bytes.
func MergeBodies(existing json.RawMessage, incoming json.RawMessage) (json.RawMessage, error) {
	merged, err := DecodeBody(existing)
	if err != nil {
		return nil, err
	}

	overlay, err := DecodeBody(incoming)
	if err != nil {
		return nil, err
	}

	for field, value := range overlay {
		merged[field] = value
	}

	return json.Marshal(merged)
}

// MatchesFilters reports whether every filter equals the body's string field.
func MatchesFilters(fields map[string]json.RawMessage, filters map[string]string) bool {
	for field, expected := range filters {
		raw, ok := fields[field]
		if !ok {
			return false
		}

		var actual string
		if err := json.Unmarshal(raw, &actual); err != nil || actual != expected {
			return false
		}
	}

	return true
}

// SortDocuments orders documents by Instant, then Key.
func SortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Instant.Equal(docs[j].Instant) {
			return docs[i].Key < docs[j].Key
		}
		return docs[i].Instant.Before(docs[j].Instant)
	})
}

// CoalesceBatch merges documents sharing a key inside one batch, in order,
// so backends that upsert with a single statement never touch a row twice.
// The last Instant seen for a key wins.
func CoalesceBatch(docs []Document) ([]Document, error) {
	index := make(map[string]int, len(docs))
	result := make([]Document, 0, len(docs))

	for _, doc := range docs {
		if doc.Key == "" {
			return nil, fmt.Errorf("document without key")
		}

		if _, err := DecodeBody(doc.Body); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Key, err)
		}

		i, seen := index[doc.Key]
		if !seen {
			index[doc.Key] = len(result)
			result = append(result, doc)
			continue
		}

		merged, err := MergeBodies(result[i].Body, doc.Body)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Key, err)
		}
		result[i] = Document{Key: doc.Key, Instant: doc.Instant, Body: merged}
	}

	return result, nil
}
