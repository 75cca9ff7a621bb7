package model

import (
	"encoding/json"
	"testing"
)

// TestInformationUnmarshal tests decoding of both PUG View encodings.
func TestInformationUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantStr string
		hasStr  bool
		wantNum float64
		hasNum  bool
		wantURL string
		hasURL  bool
	}{
		{
			name:    "legacy string",
			input:   `{"ReferenceNumber":3,"StringValue":"C9H8O4"}`,
			wantStr: "C9H8O4",
			hasStr:  true,
		},
		{
			name:    "legacy number",
			input:   `{"NumValue":2244}`,
			wantNum: 2244,
			hasNum:  true,
		},
		{
			name:    "legacy url",
			input:   `{"URL":"https://pubchem.ncbi.nlm.nih.gov/x?link_uid=1"}`,
			wantURL: "https://pubchem.ncbi.nlm.nih.gov/x?link_uid=1",
			hasURL:  true,
		},
		{
			name:    "modern string with markup",
			input:   `{"Value":{"StringWithMarkup":[{"String":"C9H8O4"},{"String":"ignored"}]}}`,
			wantStr: "C9H8O4",
			hasStr:  true,
		},
		{
			name:    "modern number",
			input:   `{"Value":{"Number":[2244]}}`,
			wantNum: 2244,
			hasNum:  true,
		},
		{
			name:    "legacy string and url are both kept",
			input:   `{"StringValue":"C9H8O4","URL":"https://example.com/formula"}`,
			wantStr: "C9H8O4",
			hasStr:  true,
			wantURL: "https://example.com/formula",
			hasURL:  true,
		},
		{
			name:    "modern string and url are both kept",
			input:   `{"URL":"https://example.com","Value":{"StringWithMarkup":[{"String":"x"}]}}`,
			wantStr: "x",
			hasStr:  true,
			wantURL: "https://example.com",
			hasURL:  true,
		},
		{
			name:    "number and string are both kept",
			input:   `{"NumValue":7,"StringValue":"seven"}`,
			wantStr: "seven",
			hasStr:  true,
			wantNum: 7,
			hasNum:  true,
		},
		{
			name:    "legacy key wins over nested value",
			input:   `{"StringValue":"flat","Value":{"StringWithMarkup":[{"String":"nested"}]}}`,
			wantStr: "flat",
			hasStr:  true,
		},
		{
			name:   "empty string value is still a string",
			input:  `{"StringValue":""}`,
			hasStr: true,
		},
		{
			name:  "empty url is absent",
			input: `{"URL":""}`,
		},
		{
			name:  "no value",
			input: `{"Name":"note"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var info Information
			if err := json.Unmarshal([]byte(tt.input), &info); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			s, sok := info.StringValue()
			n, nok := info.NumberValue()
			u, uok := info.URLValue()
			if sok != tt.hasStr || s != tt.wantStr {
				t.Errorf("StringValue() = %q, %v; expected %q, %v", s, sok, tt.wantStr, tt.hasStr)
			}
			if nok != tt.hasNum || n != tt.wantNum {
				t.Errorf("NumberValue() = %v, %v; expected %v, %v", n, nok, tt.wantNum, tt.hasNum)
			}
			if uok != tt.hasURL || u != tt.wantURL {
				t.Errorf("URLValue() = %q, %v; expected %q, %v", u, uok, tt.wantURL, tt.hasURL)
			}
			if empty := !tt.hasStr && !tt.hasNum && !tt.hasURL; info.Empty() != empty {
				t.Errorf("Empty() = %v, expected %v", info.Empty(), empty)
			}
		})
	}
}

// TestInformationRoundTrip tests that encoded fixtures decode to the same variant.
func TestInformationRoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []Information{
		StringInfo("CC(=O)O"),
		NumberInfo(1),
		URLInfo("https://example.com"),
		StringInfo("C9H8O4").WithURL("https://example.com/formula"),
	} {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out Information
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if out != in {
			t.Errorf("got %+v, expected %+v", out, in)
		}
	}
}

// TestSectionFirst tests the first-entry accessors.
func TestSectionFirst(t *testing.T) {
	t.Parallel()

	t.Run("nil section", func(t *testing.T) {
		t.Parallel()
		var s *Section
		if _, ok := s.FirstString(); ok {
			t.Error("expected no value from nil section")
		}
	})

	t.Run("no information", func(t *testing.T) {
		t.Parallel()
		s := &Section{TOCHeading: "Parent Compound"}
		if _, ok := s.FirstNumber(); ok {
			t.Error("expected no value")
		}
	})

	t.Run("missing value", func(t *testing.T) {
		t.Parallel()
		s := &Section{Information: []Information{StringInfo("x")}}
		if _, ok := s.FirstURL(); ok {
			t.Error("expected URL lookup to fail on string-only entry")
		}
		if got, ok := s.FirstString(); !ok || got != "x" {
			t.Errorf("got %q, expected %q", got, "x")
		}
	})

	t.Run("string entry that also links", func(t *testing.T) {
		t.Parallel()
		s := &Section{Information: []Information{StringInfo("C9H8O4").WithURL("https://example.com")}}
		if got, ok := s.FirstString(); !ok || got != "C9H8O4" {
			t.Errorf("got %q, %v; expected %q", got, ok, "C9H8O4")
		}
		if got, ok := s.FirstURL(); !ok || got != "https://example.com" {
			t.Errorf("got %q, %v; expected %q", got, ok, "https://example.com")
		}
	})
}

// TestAsCID tests numeric identifier conversion.
func TestAsCID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want int64
		ok   bool
	}{
		{2244, 2244, true},
		{1.5, 0, false},
		{0, 0, false},
		{-3, 0, false},
	}
	for _, tt := range tests {
		got, ok := AsCID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AsCID(%v) = %d, %v; expected %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
