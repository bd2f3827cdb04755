package csvimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timmy/culturemap/internal/dictionary"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/ledger"
)

const unknownKeyPrefix = "unknown-"

// HeaderResult is the outcome of mapping a header row.
type HeaderResult struct {
	Mapping         []domain.MappingEntry
	UnknownCount    int
	MissingRequired []string
	Notes           ledger.Entries
}

// Blocking reports whether the header has problems that keep the import in CREATED.
func (h HeaderResult) Blocking() bool {
	return len(h.Notes.Errors) > 0
}

// MapHeaders binds every header to a dictionary field. sample holds the first
// data row and may be shorter than header.
func MapHeaders(header []string, sample []string) HeaderResult {
	var res HeaderResult
	bound := make(map[string]string)
	matched := make(map[string]bool)
	hasID := false

	for i, h := range header {
		entry := domain.MappingEntry{Header: h, IsID: "false"}
		if i < len(sample) {
			entry.Row = strings.TrimSpace(sample[i])
		}

		key, ok := dictionary.Lookup(h)
		switch {
		case strings.TrimSpace(h) == dictionary.IDColumn:
			if hasID {
				res.UnknownCount++
				entry.HeaderKey = unknownKeyPrefix + strconv.Itoa(res.UnknownCount)
				res.Notes.Warnings = append(res.Notes.Warnings,
					fmt.Sprintf("Column %d: duplicate identity column %q stored as %s", i+1, h, entry.HeaderKey))
				break
			}
			hasID = true
			entry.HeaderKey = dictionary.IDColumn
			entry.Match = dictionary.IDColumn
			entry.IsID = "true"
		case ok && bound[key] != "":
			res.UnknownCount++
			entry.HeaderKey = unknownKeyPrefix + strconv.Itoa(res.UnknownCount)
			res.Notes.Warnings = append(res.Notes.Warnings,
				fmt.Sprintf("Column %d: %q maps to %s, which is already bound to %q; stored as %s",
					i+1, h, key, bound[key], entry.HeaderKey))
		case ok:
			bound[key] = h
			matched[key] = true
			entry.HeaderKey = key
			entry.Match = key
		default:
			res.UnknownCount++
			entry.HeaderKey = unknownKeyPrefix + strconv.Itoa(res.UnknownCount)
			note := fmt.Sprintf("Column %d: unknown column %q stored as %s", i+1, h, entry.HeaderKey)
			if s := dictionary.Suggest(h); s != "" {
				note += fmt.Sprintf(" (did you mean %q?)", s)
			}
			res.Notes.Log = append(res.Notes.Log, note)
		}
		res.Mapping = append(res.Mapping, entry)
	}

	if !hasID {
		res.Notes.Errors = append(res.Notes.Errors,
			fmt.Sprintf("Identity column %q is missing", dictionary.IDColumn))
	}
	for _, g := range dictionary.RequiredGroups() {
		if g.SatisfiedBy(matched) {
			continue
		}
		res.MissingRequired = append(res.MissingRequired, g.Name)
		res.Notes.Errors = append(res.Notes.Errors, missingGroupMessage(g))
	}

	res.Notes.Log = append(res.Notes.Log, fmt.Sprintf("Mapped %d columns, %d unknown, %d required missing",
		len(header), res.UnknownCount, len(res.MissingRequired)))
	return res
}

func missingGroupMessage(g dictionary.RequiredGroup) string {
	aliases := g.Aliases()
	quoted := make([]string, len(aliases))
	for i, a := range aliases {
		quoted[i] = strconv.Quote(a)
	}
	return fmt.Sprintf("Required column %s is missing, expected %s", g.Name, strings.Join(quoted, " or "))
}

// ValidateMapping checks a confirmed mapping before scheduling and returns
// one message per problem.
func ValidateMapping(entries []domain.MappingEntry) []string {
	var problems []string
	matched := make(map[string]bool)
	ids := 0

	for _, e := range entries {
		match := strings.TrimSpace(e.Match)
		switch {
		case match == "":
			problems = append(problems, fmt.Sprintf("Column %q has no assigned field", e.Header))
		case !dictionary.IsKnownMatch(match):
			problems = append(problems, fmt.Sprintf("Column %q is assigned to unknown field %q", e.Header, match))
		case match == dictionary.IDColumn:
			ids++
		case match == dictionary.IgnoreKey:
		case matched[match]:
			problems = append(problems, fmt.Sprintf("Field %s is assigned to more than one column", match))
		default:
			matched[match] = true
		}
	}

	if ids != 1 {
		problems = append(problems, fmt.Sprintf("Exactly one identity column %q is required", dictionary.IDColumn))
	}
	for _, g := range dictionary.RequiredGroups() {
		if !g.SatisfiedBy(matched) {
			problems = append(problems, missingGroupMessage(g))
		}
	}
	return problems
}

// MatchUpdate reassigns the field of the column identified by HeaderKey.
type MatchUpdate struct {
	HeaderKey string `json:"headerKey" binding:"required"`
	Match     string `json:"match"`
}

// ApplyMatches returns a copy of entries with updates applied. Unknown header
// keys and identity column changes are rejected.
func ApplyMatches(entries []domain.MappingEntry, updates []MatchUpdate) ([]domain.MappingEntry, error) {
	out := make([]domain.MappingEntry, len(entries))
	copy(out, entries)

	index := make(map[string]int, len(out))
	for i, e := range out {
		index[e.HeaderKey] = i
	}

	for _, u := range updates {
		i, ok := index[u.HeaderKey]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", u.HeaderKey)
		}
		match := strings.TrimSpace(u.Match)
		if match != "" && !dictionary.IsKnownMatch(match) {
			return nil, fmt.Errorf("column %q: unknown field %q", u.HeaderKey, match)
		}
		if (out[i].IsID == "true") != (match == dictionary.IDColumn) {
			return nil, fmt.Errorf("column %q: identity column cannot be reassigned", u.HeaderKey)
		}
		out[i].Match = match
	}
	return out, nil
}

// columnIndex maps field keys to their column; identity is the ### column or -1.
type columnIndex struct {
	fields   map[string]int
	identity int
}

func indexMapping(entries []domain.MappingEntry) columnIndex {
	idx := columnIndex{fields: make(map[string]int), identity: -1}
	for i, e := range entries {
		switch e.Match {
		case "", dictionary.IgnoreKey:
		case dictionary.IDColumn:
			idx.identity = i
		default:
			idx.fields[e.Match] = i
		}
	}
	return idx
}
