// Package corpus encodes and decodes the stored knowledge corpus.
//
// The stored document is a JSON array of loosely shaped objects written by
// several generations of ingestion tooling. Decoding never rejects a
// record: wrong-typed fields become empty values, string-encoded
// embeddings are parsed, and unknown fields are preserved in Extra so a
// load/save round trip keeps them.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// ErrNotArray indicates a payload that is neither a JSON array nor an
// object wrapping one. Decode still returns an empty corpus with it.
var ErrNotArray = errors.New("corpus payload is not a JSON array")

// Field names written by Encode.
const (
	fieldID         = "id"
	fieldKind       = "kind"
	fieldQuestion   = "question"
	fieldAnswer     = "answer"
	fieldContent    = "content"
	fieldEmbedding  = "embedding"
	fieldSource     = "source"
	fieldSourceFile = "sourceFile"
	fieldDoc        = "doc"
	fieldOrigin     = "origin"
)

// aliases maps legacy field names onto the canonical ones. The canonical
// name wins when both are present.
var aliases = map[string]string{
	"type":        fieldKind,
	"text":        fieldContent,
	"chunk":       fieldContent,
	"source_file": fieldSourceFile,
	"sourcefile":  fieldSourceFile,
	"filename":    fieldSourceFile,
	"document":    fieldDoc,
}

// wrapperKeys are object keys that may hold the record array.
var wrapperKeys = []string{"records", "items", "data"}

// Decode parses a stored corpus. Empty input is an empty corpus.
// Malformed JSON returns the parse error; a well-formed payload that is
// not an array returns an empty corpus and ErrNotArray.
func Decode(data []byte) ([]domain.KnowledgeRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []domain.KnowledgeRecord{}, nil
	}

	items, err := decodeItems(data)
	if err != nil {
		return []domain.KnowledgeRecord{}, err
	}

	records := make([]domain.KnowledgeRecord, 0, len(items))
	for _, item := range items {
		records = append(records, decodeRecord(item))
	}
	return records, nil
}

func decodeItems(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		for _, key := range wrapperKeys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &items); err == nil {
				return items, nil
			}
		}
		return nil, ErrNotArray
	default:
		if !json.Valid(data) {
			return nil, errors.New("corpus payload is not valid JSON")
		}
		return nil, ErrNotArray
	}
}

// decodeRecord maps one array element to a record. Elements that are not
// objects become empty QA records, which the hygiene filter rejects.
func decodeRecord(raw json.RawMessage) domain.KnowledgeRecord {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return domain.KnowledgeRecord{Kind: domain.KindQA}
	}

	canonical := make(map[string]json.RawMessage, len(fields))
	extra := make(map[string]json.RawMessage)
	for name, value := range fields {
		if isKnown(name) {
			canonical[name] = value
		}
	}
	// Sorted so the winner among competing aliases is stable.
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		value := fields[name]
		if isKnown(name) {
			continue
		}
		target, ok := aliases[strings.ToLower(name)]
		if !ok {
			extra[name] = value
			continue
		}
		if _, taken := canonical[target]; taken {
			extra[name] = value
			continue
		}
		canonical[target] = value
	}

	record := domain.KnowledgeRecord{
		ID:        text(canonical[fieldID]),
		Kind:      domain.ParseRecordKind(text(canonical[fieldKind])),
		Question:  text(canonical[fieldQuestion]),
		Answer:    text(canonical[fieldAnswer]),
		Content:   text(canonical[fieldContent]),
		Embedding: ParseEmbedding(canonical[fieldEmbedding]),
		Provenance: domain.Provenance{
			Source:     text(canonical[fieldSource]),
			SourceFile: text(canonical[fieldSourceFile]),
			Doc:        text(canonical[fieldDoc]),
			Origin:     text(canonical[fieldOrigin]),
		},
	}
	if len(extra) > 0 {
		record.Extra = extra
	}
	return record
}

func isKnown(name string) bool {
	switch name {
	case fieldID, fieldKind, fieldQuestion, fieldAnswer, fieldContent, fieldEmbedding,
		fieldSource, fieldSourceFile, fieldDoc, fieldOrigin:
		return true
	}
	return false
}

// text reads a scalar as a string. Numbers and booleans keep their JSON
// spelling; null, arrays and objects read as "".
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw)
	default:
		return ""
	}
}

// ParseEmbedding reads a vector stored as a JSON array of numbers or as a
// string holding one. Anything else, including arrays with non-numeric or
// non-finite elements, yields nil.
func ParseEmbedding(raw json.RawMessage) []float32 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil
		}
		raw = json.RawMessage(strings.TrimSpace(encoded))
		if len(raw) == 0 || raw[0] != '[' {
			return nil
		}
	}
	if raw[0] != '[' {
		return nil
	}

	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}

	out := make([]float32, len(values))
	for i, v := range values {
		f := float32(v)
		if math.IsInf(float64(f), 0) {
			return nil
		}
		out[i] = f
	}
	return out
}

// Encode writes records as a JSON array. Extra fields are written back
// unless they collide with a field the record sets.
func Encode(records []domain.KnowledgeRecord) ([]byte, error) {
	out := make([]map[string]any, 0, len(records))
	for i := range records {
		out = append(out, encodeRecord(&records[i]))
	}
	return json.Marshal(out)
}

func encodeRecord(r *domain.KnowledgeRecord) map[string]any {
	m := make(map[string]any, len(r.Extra)+6)
	for name, value := range r.Extra {
		m[name] = value
	}

	kind := r.Kind
	if kind == "" {
		kind = domain.KindQA
	}
	m[fieldKind] = kind.String()

	if r.ID != "" {
		m[fieldID] = r.ID
	}
	if kind == domain.KindContext {
		m[fieldContent] = r.Content
		if r.Question != "" {
			m[fieldQuestion] = r.Question
		}
		if r.Answer != "" {
			m[fieldAnswer] = r.Answer
		}
	} else {
		m[fieldQuestion] = r.Question
		m[fieldAnswer] = r.Answer
		if r.Content != "" {
			m[fieldContent] = r.Content
		}
	}
	if len(r.Embedding) > 0 {
		m[fieldEmbedding] = r.Embedding
	}

	provenance := map[string]string{
		fieldSource:     r.Provenance.Source,
		fieldSourceFile: r.Provenance.SourceFile,
		fieldDoc:        r.Provenance.Doc,
		fieldOrigin:     r.Provenance.Origin,
	}
	for name, value := range provenance {
		if value != "" {
			m[name] = value
		}
	}
	return m
}
