// Package glossary renders extracted terms as the identity-mapping CSV the
// document translation API accepts, plus a JSON mirror kept in the status row.
package glossary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Entry maps a term to itself so the translator leaves it untouched.
type Entry struct {
	Source string
	Target string
}

type Glossary struct {
	Entries []Entry
	CSV     []byte
	JSON    []byte
}

type jsonItem struct {
	Items string `json:"items"`
}

// Build emits exactly one row per input term, in order, duplicates kept.
// Commas are removed from each term; every field is quoted.
func Build(terms []string) (Glossary, error) {
	entries := make([]Entry, 0, len(terms))
	items := make([]jsonItem, 0, len(terms))
	var csv bytes.Buffer
	for _, t := range terms {
		clean := strings.ReplaceAll(t, ",", "")
		entries = append(entries, Entry{Source: clean, Target: clean})
		items = append(items, jsonItem{Items: clean})
		writeQuoted(&csv, clean)
		csv.WriteByte(',')
		writeQuoted(&csv, clean)
		csv.WriteString("\r\n")
	}

	var js bytes.Buffer
	enc := json.NewEncoder(&js)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return Glossary{}, fmt.Errorf("encode glossary json: %w", err)
	}
	return Glossary{
		Entries: entries,
		CSV:     csv.Bytes(),
		JSON:    bytes.TrimRight(js.Bytes(), "\n"),
	}, nil
}

// encoding/csv only quotes when needed, so fields are quoted by hand.
func writeQuoted(b *bytes.Buffer, field string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(field, `"`, `""`))
	b.WriteByte('"')
}

// Merge appends exclusion terms after the extracted ones. No deduplication.
func Merge(extracted, exclusions []string) []string {
	out := make([]string, 0, len(extracted)+len(exclusions))
	out = append(out, extracted...)
	return append(out, exclusions...)
}

// SplitTerms splits free text on line breaks, trims, and drops blank lines.
func SplitTerms(text string) []string {
	out := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ObjectName is the blob name of the glossary for a source file base name.
func ObjectName(base string) string {
	return "glossaries_" + base + ".csv"
}
