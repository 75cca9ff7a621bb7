// Package pubchem retrieves PubChem compound records and extracts a fixed
// summary from them.
//
// # Components
//
//   - Client: fetches PUG View documents over HTTP, with a shared rate limit
//     and retries for transient failures.
//   - Extractor: walks one record and assembles a model.CompoundResult,
//     resolving related identifiers through a crawler.Resolver session.
//
// # Extracted fields
//
// The Extractor reads:
//
//	Names and Identifiers > Molecular Formula     (required)
//	Names and Identifiers > Computed Descriptors  (positions 0..4)
//	Related Records > Parent Compound | Related Compounds | Substances
//
// Sections are located by label, never by position, except the children of
// Computed Descriptors which PubChem emits in a fixed order:
// IUPAC Name, InChI, InChIKey, Canonical SMILES, Isomeric SMILES.
//
// # Errors
//
// Failures abort the extraction and are reported as *TransportError,
// *SchemaError or *ExtractionError. Use errors.As to tell them apart.
// A secondary page that answers non-2xx is not a failure; it contributes
// an empty identifier list.
package pubchem
