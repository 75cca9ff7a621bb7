package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nao1215/pubchemscan/internal/model"
	"github.com/nao1215/pubchemscan/internal/pubchem"
)

const aspirinJSON = `{"molecularFormula":"C9H8O4","isomericSMILES":"","canonicalSMILES":"CC(=O)OC1=CC=CC=C1C(=O)O","inChIKey":"BSYNRYMUTXBXSQ-UHFFFAOYSA-N","inChI":"","iUpacName":"2-acetyloxybenzoic acid","related":{"parents":[2244],"relatedids":[["1001","1002"]],"substanceids":[]}}`

// fakePubChem serves aspirin (CID 2244) and answers 404 for every other CID.
type fakePubChem struct {
	server  *httptest.Server
	primary atomic.Int64
}

func newFakePubChem(t *testing.T) *fakePubChem {
	t.Helper()

	f := &fakePubChem{}
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/pug_view/data/compound/", func(w http.ResponseWriter, r *http.Request) {
		f.primary.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/rest/pug_view/data/compound/2244/") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"Fault":{"Code":"PUGVIEW.NotFound","Message":"No record data for CID"}}`)) //nolint:errcheck
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.document()) //nolint:errcheck
	})
	mux.HandleFunc("/related", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<a href="?link_uid=1001">a</a> <a href="?link_uid=1002">b</a>`)) //nolint:errcheck
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePubChem) document() model.Document {
	info := func(label string, v model.Information) model.Section {
		return model.Section{TOCHeading: label, Information: []model.Information{v}}
	}
	return model.Document{Record: model.Record{
		RecordNumber: 2244,
		RecordTitle:  "Aspirin",
		Section: []model.Section{
			{
				TOCHeading: pubchem.SectionNamesAndIdentifiers,
				Section: []model.Section{
					{
						TOCHeading: pubchem.SectionComputedDescriptors,
						Section: []model.Section{
							info("IUPAC Name", model.StringInfo("2-acetyloxybenzoic acid")),
							info("InChI", model.StringInfo("")),
							info("InChIKey", model.StringInfo("BSYNRYMUTXBXSQ-UHFFFAOYSA-N")),
							info("Canonical SMILES", model.StringInfo("CC(=O)OC1=CC=CC=C1C(=O)O")),
						},
					},
					info(pubchem.SectionMolecularFormula, model.StringInfo("C9H8O4")),
				},
			},
			{
				TOCHeading: pubchem.SectionRelatedRecords,
				Section: []model.Section{
					info(pubchem.SectionParentCompound, model.NumberInfo(2244)),
					info(pubchem.SectionRelatedCompounds, model.URLInfo(f.server.URL+"/related")),
				},
			},
		},
	}}
}

// lookupEnv holds per-test paths so runs never touch the user's cache or config.
type lookupEnv struct {
	fake   *fakePubChem
	dbDir  string
	config string
}

func newLookupEnv(t *testing.T) *lookupEnv {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, nil, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &lookupEnv{
		fake:   newFakePubChem(t),
		dbDir:  filepath.Join(dir, "db"),
		config: configPath,
	}
}

// run executes "pubchemscan lookup" against the fake server.
func (e *lookupEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	base := []string{
		"lookup",
		"--config", e.config,
		"--base-url", e.fake.server.URL,
		"--min-delay", "0s",
		"--max-delay", "0s",
		"--retries", "0",
		"--db-dir", e.dbDir,
	}

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// TestLookupCmdFlags tests the lookup command flag set.
func TestLookupCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := NewLookupCmd()
	for _, name := range []string{
		"timeout", "min-delay", "max-delay", "retries", "base-url", "batch",
		"refresh", "no-cache", "db-dir", "json", "markdown", "text", "pretty", "output",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestLookupCmd tests end-to-end lookups against a fake PubChem.
//
//nolint:paralleltest // runLookup installs the default slog logger
func TestLookupCmd(t *testing.T) {
	t.Run("prints the compound summary", func(t *testing.T) {
		env := newLookupEnv(t)

		out, _, err := env.run(t, "2244")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.TrimSpace(out); got != aspirinJSON {
			t.Errorf("got %s, expected %s", got, aspirinJSON)
		}
	})

	t.Run("second lookup is served from the cache", func(t *testing.T) {
		env := newLookupEnv(t)

		if _, _, err := env.run(t, "2244"); err != nil {
			t.Fatalf("first run: %v", err)
		}
		out, _, err := env.run(t, "2244")
		if err != nil {
			t.Fatalf("second run: %v", err)
		}
		if got := env.fake.primary.Load(); got != 1 {
			t.Errorf("got %d primary fetches, expected 1", got)
		}
		if got := strings.TrimSpace(out); got != aspirinJSON {
			t.Errorf("got %s, expected %s", got, aspirinJSON)
		}
	})

	t.Run("refresh bypasses the cache", func(t *testing.T) {
		env := newLookupEnv(t)

		for range 2 {
			if _, _, err := env.run(t, "--refresh", "2244"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if got := env.fake.primary.Load(); got != 2 {
			t.Errorf("got %d primary fetches, expected 2", got)
		}
	})

	t.Run("no-cache creates no database", func(t *testing.T) {
		env := newLookupEnv(t)

		if _, _, err := env.run(t, "--no-cache", "2244"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(env.dbDir); !os.IsNotExist(err) {
			t.Errorf("expected no database directory, got %v", err)
		}
	})

	t.Run("failed CID is reported and others still print", func(t *testing.T) {
		env := newLookupEnv(t)

		out, errOut, err := env.run(t, "9999", "2244")
		if err == nil || !strings.Contains(err.Error(), "1 of 2 lookups failed") {
			t.Fatalf("expected partial failure error, got %v", err)
		}
		if !strings.Contains(errOut, "lookup failed for CID 9999") {
			t.Errorf("expected failure on stderr, got %q", errOut)
		}
		if got := strings.TrimSpace(out); got != aspirinJSON {
			t.Errorf("got %s, expected %s", got, aspirinJSON)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		env := newLookupEnv(t)

		out, _, err := env.run(t, "-m", "2244")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Aspirin (CID 2244)", "C9H8O4", "## Related Records"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("text output to file", func(t *testing.T) {
		env := newLookupEnv(t)
		path := filepath.Join(t.TempDir(), "out", "aspirin.txt")

		out, _, err := env.run(t, "-t", "-o", path, "2244")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "" {
			t.Errorf("expected nothing on stdout, got %q", out)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "CID 2244") {
			t.Errorf("expected text report, got %q", content)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		env := newLookupEnv(t)

		_, _, err := env.run(t, "-m", "-t", "2244")
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
		if got := env.fake.primary.Load(); got != 0 {
			t.Errorf("got %d primary fetches, expected 0", got)
		}
	})

	t.Run("invalid CID", func(t *testing.T) {
		env := newLookupEnv(t)

		if _, _, err := env.run(t, "abc"); err == nil {
			t.Error("expected error for non-numeric CID")
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		var stdout bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"lookup", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "2244"})
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected config not found error, got %v", err)
		}
	})
}
