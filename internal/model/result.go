package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Strategy identifies which fetch implementation produced a result
type Strategy string

const (
	StrategyStatic  Strategy = "static"
	StrategyBrowser Strategy = "browser"
)

// ResultStatusSuccess marks a successful scrape. Failed scrapes carry
// a status of the form "error: <cause>".
const ResultStatusSuccess = "success"

// ScrapeResult represents the persisted outcome of one fetch attempt,
// success or failure. Records are append-only.
type ScrapeResult struct {
	ID        int64     `json:"id,omitempty"`
	Target    string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Source    Strategy  `json:"source"`
	Status    string    `json:"status"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Succeeded reports whether the fetch attempt completed without error.
func (r *ScrapeResult) Succeeded() bool {
	return r.Status == ResultStatusSuccess
}

// Field is a single metadata entry.
type Field struct {
	Key   string
	Value any
}

// Metadata is an ordered list of page-level annotations: meta tag
// pairs, outbound links, image references and transport details.
// It marshals to a JSON object preserving insertion order.
type Metadata []Field

// Set appends a key/value pair, replacing an existing entry in place.
func (m *Metadata) Set(key string, value any) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Field{Key: key, Value: value})
}

// Get returns the value for key, if present.
func (m Metadata) Get(key string) (any, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON renders the metadata as a JSON object in insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata key %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata value for %q: %w", f.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected JSON object, got %v", tok)
	}

	out := Metadata{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metadata: expected string key, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, Field{Key: key, Value: value})
	}
	*m = out
	return nil
}
