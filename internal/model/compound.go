package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// CompoundResult is the summary extracted from one compound record.
//
// Any field whose source section is missing stays "". The JSON field order
// and key names are fixed; consumers of the output rely on them.
type CompoundResult struct {
	// MolecularFormula comes from Names and Identifiers > Molecular Formula.
	MolecularFormula string `json:"molecularFormula"`

	// IsomericSMILES is Computed Descriptors position 4.
	IsomericSMILES string `json:"isomericSMILES"`

	// CanonicalSMILES is Computed Descriptors position 3.
	CanonicalSMILES string `json:"canonicalSMILES"`

	// InChIKey is Computed Descriptors position 2.
	InChIKey string `json:"inChIKey"`

	// InChI is Computed Descriptors position 1.
	InChI string `json:"inChI"`

	// IUPACName is Computed Descriptors position 0.
	IUPACName string `json:"iUpacName"`

	// Related holds parent and related-record identifiers.
	Related RelatedRecords `json:"related"`
}

// NewCompoundResult returns a result with all fields empty and every
// related list initialized.
func NewCompoundResult() *CompoundResult {
	return &CompoundResult{Related: NewRelatedRecords()}
}

// RelatedRecords groups identifiers that point away from the compound.
//
// RelatedIDs and SubstanceIDs hold one inner list per secondary fetch, in
// the order the fetches were made. A fetch that found nothing still
// contributes an empty inner list.
type RelatedRecords struct {
	// Parents lists parent compound identifiers.
	Parents []int64 `json:"parents"`

	// RelatedIDs lists identifier groups from Related Compounds links.
	RelatedIDs [][]string `json:"relatedids"`

	// SubstanceIDs lists identifier groups from Substances links.
	SubstanceIDs [][]string `json:"substanceids"`
}

// NewRelatedRecords returns RelatedRecords with non-nil empty lists.
func NewRelatedRecords() RelatedRecords {
	return RelatedRecords{
		Parents:      []int64{},
		RelatedIDs:   [][]string{},
		SubstanceIDs: [][]string{},
	}
}

// MarshalJSON encodes empty or nil lists as [] rather than null.
func (r RelatedRecords) MarshalJSON() ([]byte, error) {
	type plain RelatedRecords
	out := plain{
		Parents:      r.Parents,
		RelatedIDs:   normalizeGroups(r.RelatedIDs),
		SubstanceIDs: normalizeGroups(r.SubstanceIDs),
	}
	if out.Parents == nil {
		out.Parents = []int64{}
	}
	return json.Marshal(out)
}

func normalizeGroups(groups [][]string) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		if g == nil {
			g = []string{}
		}
		out[i] = g
	}
	return out
}

// Marshal returns the compact JSON encoding of the result.
// HTML-sensitive characters are not escaped so the output matches the
// values PubChem returned byte for byte.
func (c *CompoundResult) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode compound result: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// String returns the compact JSON encoding, or "{}" if encoding fails.
func (c *CompoundResult) String() string {
	data, err := c.Marshal()
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ChangedFields lists the JSON names of the fields that differ between two
// results. A nil side is treated as an empty result.
func ChangedFields(prev, next *CompoundResult) []string {
	if prev == nil {
		prev = NewCompoundResult()
	}
	if next == nil {
		next = NewCompoundResult()
	}

	var changed []string
	pairs := []struct {
		name string
		a, b string
	}{
		{"molecularFormula", prev.MolecularFormula, next.MolecularFormula},
		{"isomericSMILES", prev.IsomericSMILES, next.IsomericSMILES},
		{"canonicalSMILES", prev.CanonicalSMILES, next.CanonicalSMILES},
		{"inChIKey", prev.InChIKey, next.InChIKey},
		{"inChI", prev.InChI, next.InChI},
		{"iUpacName", prev.IUPACName, next.IUPACName},
	}
	for _, p := range pairs {
		if p.a != p.b {
			changed = append(changed, p.name)
		}
	}

	if !slices.Equal(prev.Related.Parents, next.Related.Parents) {
		changed = append(changed, "related.parents")
	}
	if !slices.EqualFunc(prev.Related.RelatedIDs, next.Related.RelatedIDs, slices.Equal[[]string]) {
		changed = append(changed, "related.relatedids")
	}
	if !slices.EqualFunc(prev.Related.SubstanceIDs, next.Related.SubstanceIDs, slices.Equal[[]string]) {
		changed = append(changed, "related.substanceids")
	}
	return changed
}

// Lookup is one extraction of one compound, as recorded by the cache and
// passed to report writers and the HTTP API.
type Lookup struct {
	// ID is the history row identifier. Zero until persisted.
	ID int64 `json:"id,omitempty"`

	// CID is the compound identifier that was looked up.
	CID int `json:"cid"`

	// Title is the record title, when known.
	Title string `json:"title,omitempty"`

	// Result is the extracted summary.
	Result *CompoundResult `json:"result"`

	// FetchedAt is when the record was fetched from PubChem.
	FetchedAt time.Time `json:"fetched_at"`

	// Cached is true when Result was served from the local cache.
	Cached bool `json:"cached"`

	// Hash is the hex SHA3-256 digest of the serialized Result.
	Hash string `json:"hash,omitempty"`
}
