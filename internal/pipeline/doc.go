// Package pipeline runs compound lookups through the cache and in batches.
//
// CachedExtractor puts the SQLite cache in front of the PubChem extractor:
// a fresh cached result is returned without any network traffic, otherwise
// the compound is extracted and the result is saved. Cache failures are
// logged and never fail a lookup.
//
// BatchProcessor looks up many compounds concurrently with errgroup. Each
// lookup is still internally sequential (one primary fetch, then spaced
// secondary fetches); only different compounds overlap. Results keep the
// input order and one failed compound does not stop the others.
package pipeline
