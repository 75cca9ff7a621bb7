package pubchem

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/pubchemscan/internal/crawler"
	"github.com/nao1215/pubchemscan/internal/locator"
	"github.com/nao1215/pubchemscan/internal/model"
)

// Section labels read by the Extractor.
const (
	SectionNamesAndIdentifiers = "Names and Identifiers"
	SectionMolecularFormula    = "Molecular Formula"
	SectionComputedDescriptors = "Computed Descriptors"
	SectionRelatedRecords      = "Related Records"
	SectionParentCompound      = "Parent Compound"
	SectionRelatedCompounds    = "Related Compounds"
	SectionSubstances          = "Substances"
)

// Computed Descriptors children, by position.
const (
	descriptorIUPACName = iota
	descriptorInChI
	descriptorInChIKey
	descriptorCanonicalSMILES
	descriptorIsomericSMILES
)

// RecordFetcher retrieves the primary record for a compound.
type RecordFetcher interface {
	FetchRecord(ctx context.Context, cid int) (*model.Record, error)
}

// Extractor performs one full compound lookup: the primary fetch, the
// section walk, and the sequential secondary fetches.
// An Extractor is safe for concurrent use; each call gets its own
// resolver session.
type Extractor struct {
	fetcher  RecordFetcher
	resolver *crawler.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorLogger sets the logger.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithClock sets the time source used for Lookup.FetchedAt.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(fetcher RecordFetcher, resolver *crawler.Resolver, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		fetcher:  fetcher,
		resolver: resolver,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.resolver == nil {
		e.resolver = crawler.NewResolver(nil, crawler.WithLogger(e.logger))
	}
	return e
}

// Extract looks up cid and returns its summary.
func (e *Extractor) Extract(ctx context.Context, cid int) (*model.CompoundResult, error) {
	result, _, err := e.extract(ctx, cid)
	return result, err
}

// Lookup is Extract wrapped with the record title and fetch time.
func (e *Extractor) Lookup(ctx context.Context, cid int) (*model.Lookup, error) {
	fetchedAt := e.now().UTC()
	result, title, err := e.extract(ctx, cid)
	if err != nil {
		return nil, err
	}
	return &model.Lookup{
		CID:       cid,
		Title:     title,
		Result:    result,
		FetchedAt: fetchedAt,
	}, nil
}

func (e *Extractor) extract(ctx context.Context, cid int) (*model.CompoundResult, string, error) {
	if cid <= 0 {
		return nil, "", ErrInvalidCID
	}

	record, err := e.fetcher.FetchRecord(ctx, cid)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) || errors.Is(err, ErrInvalidCID) {
			return nil, "", err
		}
		return nil, "", &TransportError{CID: cid, Err: err}
	}

	names, ok := locator.Lookup(record.Section, SectionNamesAndIdentifiers)
	if !ok {
		e.logger.Debug("record sections",
			"cid", cid,
			"labels", locator.Labels(record.Section),
		)
		return nil, "", &SchemaError{CID: cid, Missing: SectionNamesAndIdentifiers}
	}

	result := model.NewCompoundResult()

	formula, ok := locator.Lookup(names.Section, SectionMolecularFormula)
	if ok {
		result.MolecularFormula, _ = formula.FirstString()
	}
	if result.MolecularFormula == "" {
		e.logger.Debug("molecular formula not found",
			"cid", cid,
			"labels", locator.Labels(names.Section),
		)
		return nil, "", &ExtractionError{
			CID:   cid,
			Field: "molecularFormula",
			Path:  []string{SectionNamesAndIdentifiers, SectionMolecularFormula},
		}
	}

	if descriptors, ok := locator.Lookup(names.Section, SectionComputedDescriptors); ok {
		readDescriptors(descriptors.Section, result)
	}

	related, err := e.extractRelated(ctx, cid, record.Section)
	if err != nil {
		return nil, "", err
	}
	result.Related = related

	return result, record.RecordTitle, nil
}

// readDescriptors fills the positional descriptor fields. Missing positions
// leave the field empty.
func readDescriptors(children []model.Section, result *model.CompoundResult) {
	at := func(i int) string {
		s, ok := locator.At(children, i)
		if !ok {
			return ""
		}
		v, _ := s.FirstString()
		return v
	}

	result.IUPACName = at(descriptorIUPACName)
	result.InChI = at(descriptorInChI)
	result.InChIKey = at(descriptorInChIKey)
	result.CanonicalSMILES = at(descriptorCanonicalSMILES)
	result.IsomericSMILES = at(descriptorIsomericSMILES)
}

// extractRelated walks Related Records in document order. Secondary fetches
// go through one session so they are spaced by the resolver's delay.
func (e *Extractor) extractRelated(ctx context.Context, cid int, root []model.Section) (model.RelatedRecords, error) {
	related := model.NewRelatedRecords()

	records, ok := locator.Lookup(root, SectionRelatedRecords)
	if !ok {
		return related, nil
	}

	session := e.resolver.NewSession()
	resolve := func(u string) ([]string, error) {
		if u == "" {
			return []string{}, nil
		}
		ids, err := session.Resolve(ctx, u)
		if err != nil {
			return nil, &TransportError{CID: cid, URL: u, Err: err}
		}
		return ids, nil
	}

	for i := range records.Section {
		child := &records.Section[i]

		switch child.TOCHeading {
		case SectionParentCompound:
			n, ok := child.FirstNumber()
			if !ok {
				e.logger.Warn("parent compound has no numeric value", "cid", cid)
				continue
			}
			parent, ok := model.AsCID(n)
			if !ok {
				e.logger.Warn("parent compound is not an identifier", "cid", cid, "value", n)
				continue
			}
			related.Parents = append(related.Parents, parent)

		case SectionRelatedCompounds:
			u, _ := child.FirstURL()
			ids, err := resolve(u)
			if err != nil {
				return related, err
			}
			related.RelatedIDs = append(related.RelatedIDs, ids)

		case SectionSubstances:
			var u string
			if first, ok := locator.At(child.Section, 0); ok {
				u, _ = first.FirstURL()
			}
			ids, err := resolve(u)
			if err != nil {
				return related, err
			}
			related.SubstanceIDs = append(related.SubstanceIDs, ids)

		default:
			e.logger.Debug("skipping related records section", "cid", cid, "label", child.TOCHeading)
		}
	}

	if session.Fetches() > 0 {
		e.logger.Info("resolved related records",
			"cid", cid,
			"fetches", session.Fetches(),
			"waited", session.Waited(),
		)
	}
	return related, nil
}
