package model

import (
	"encoding/json"
	"math"
)

// Document is the top-level PUG View response envelope.
type Document struct {
	// Record is the compound record.
	Record Record `json:"Record"`
}

// Record is the root of a PUG View compound document.
type Record struct {
	// RecordType is the record namespace, "CID" for compounds.
	RecordType string `json:"RecordType,omitempty"`

	// RecordNumber is the compound identifier.
	RecordNumber int `json:"RecordNumber,omitempty"`

	// RecordTitle is the display name PubChem gives the compound.
	RecordTitle string `json:"RecordTitle,omitempty"`

	// Section is the ordered list of top-level sections.
	// Order is not stable across compounds or schema versions.
	Section []Section `json:"Section,omitempty"`
}

// Section is a labeled node in the record tree.
// Both Section and Information may be absent.
type Section struct {
	// TOCHeading is the label identifying the section's role,
	// e.g. "Names and Identifiers" or "Molecular Formula".
	TOCHeading string `json:"TOCHeading"`

	// Description is PubChem's free-text explanation of the section.
	Description string `json:"Description,omitempty"`

	// Section holds the child sections in document order.
	Section []Section `json:"Section,omitempty"`

	// Information holds the leaf entries attached to this section.
	Information []Information `json:"Information,omitempty"`
}

// FirstString returns the string value of the first Information entry.
func (s *Section) FirstString() (string, bool) {
	if s == nil || len(s.Information) == 0 {
		return "", false
	}
	return s.Information[0].StringValue()
}

// FirstNumber returns the numeric value of the first Information entry.
func (s *Section) FirstNumber() (float64, bool) {
	if s == nil || len(s.Information) == 0 {
		return 0, false
	}
	return s.Information[0].NumberValue()
}

// FirstURL returns the URL of the first Information entry.
func (s *Section) FirstURL() (string, bool) {
	if s == nil || len(s.Information) == 0 {
		return "", false
	}
	return s.Information[0].URLValue()
}

// Information is a leaf fact attached to a section.
// An entry may carry a string, a number and a URL at the same time; each
// is read independently and the caller picks the one its section uses.
type Information struct {
	// ReferenceNumber points into the record's reference list.
	ReferenceNumber int

	// Name is an optional label for the entry.
	Name string

	str    string
	hasStr bool
	num    float64
	hasNum bool
	url    string
	hasURL bool
}

// StringInfo returns an Information entry holding a string value.
func StringInfo(s string) Information {
	return Information{str: s, hasStr: true}
}

// NumberInfo returns an Information entry holding a numeric value.
func NumberInfo(n float64) Information {
	return Information{num: n, hasNum: true}
}

// URLInfo returns an Information entry holding a URL.
func URLInfo(u string) Information {
	return Information{url: u, hasURL: true}
}

// WithString returns a copy of i that also holds the string s.
func (i Information) WithString(s string) Information {
	i.str, i.hasStr = s, true
	return i
}

// WithNumber returns a copy of i that also holds the number n.
func (i Information) WithNumber(n float64) Information {
	i.num, i.hasNum = n, true
	return i
}

// WithURL returns a copy of i that also holds the URL u.
func (i Information) WithURL(u string) Information {
	i.url, i.hasURL = u, true
	return i
}

// StringValue returns the string value, if present.
func (i Information) StringValue() (string, bool) {
	return i.str, i.hasStr
}

// NumberValue returns the numeric value, if present.
func (i Information) NumberValue() (float64, bool) {
	return i.num, i.hasNum
}

// URLValue returns the URL, if present.
func (i Information) URLValue() (string, bool) {
	return i.url, i.hasURL
}

// Empty reports whether the entry carries none of the supported values.
func (i Information) Empty() bool {
	return !i.hasStr && !i.hasNum && !i.hasURL
}

// rawInformation mirrors both PUG View encodings of an Information entry:
// the legacy flat keys (StringValue, NumValue, URL) and the current nested
// Value object (StringWithMarkup, Number).
type rawInformation struct {
	ReferenceNumber int       `json:"ReferenceNumber,omitempty"`
	Name            string    `json:"Name,omitempty"`
	StringValue     *string   `json:"StringValue,omitempty"`
	NumValue        *float64  `json:"NumValue,omitempty"`
	URL             *string   `json:"URL,omitempty"`
	Value           *rawValue `json:"Value,omitempty"`
}

type rawValue struct {
	StringWithMarkup []struct {
		String string `json:"String"`
	} `json:"StringWithMarkup,omitempty"`
	Number []float64 `json:"Number,omitempty"`
}

// UnmarshalJSON decodes either PUG View encoding, keeping every value
// present. The legacy flat keys win over the nested Value object when both
// carry the same kind of value.
func (i *Information) UnmarshalJSON(data []byte) error {
	var raw rawInformation
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Information{
		ReferenceNumber: raw.ReferenceNumber,
		Name:            raw.Name,
	}

	switch {
	case raw.StringValue != nil:
		i.str, i.hasStr = *raw.StringValue, true
	case raw.Value != nil && len(raw.Value.StringWithMarkup) > 0:
		i.str, i.hasStr = raw.Value.StringWithMarkup[0].String, true
	}

	switch {
	case raw.NumValue != nil:
		i.num, i.hasNum = *raw.NumValue, true
	case raw.Value != nil && len(raw.Value.Number) > 0:
		i.num, i.hasNum = raw.Value.Number[0], true
	}

	if raw.URL != nil && *raw.URL != "" {
		i.url, i.hasURL = *raw.URL, true
	}
	return nil
}

// MarshalJSON encodes the entry using the legacy flat keys.
func (i Information) MarshalJSON() ([]byte, error) {
	raw := rawInformation{
		ReferenceNumber: i.ReferenceNumber,
		Name:            i.Name,
	}
	if i.hasStr {
		s := i.str
		raw.StringValue = &s
	}
	if i.hasNum {
		n := i.num
		raw.NumValue = &n
	}
	if i.hasURL {
		u := i.url
		raw.URL = &u
	}
	return json.Marshal(raw)
}

// AsCID converts a numeric Information value to a compound identifier.
// Non-integral or out-of-range values report false.
func AsCID(n float64) (int64, bool) {
	if n <= 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}
