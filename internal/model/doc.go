// Package model defines the data structures shared across pubchemscan.
//
// This package contains two groups of types:
//   - Document, Record, Section, Information: the PUG View record tree as
//     returned by PubChem. Sections are labeled by TOCHeading and nest
//     recursively; Information entries are tagged leaf values.
//   - CompoundResult, RelatedRecords, Lookup: the extraction output and the
//     envelope that report writers, the cache and the HTTP API pass around.
//
// Models live in their own package so that the locator, extractor, cache and
// report packages can share them without import cycles.
//
// CompoundResult serializes to a fixed key set:
//
//	{"molecularFormula":"C9H8O4","isomericSMILES":"","canonicalSMILES":"",
//	 "inChIKey":"","inChI":"","iUpacName":"",
//	 "related":{"parents":[],"relatedids":[],"substanceids":[]}}
package model
