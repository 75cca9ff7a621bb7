// Package main provides the entry point for the pubchemscan CLI.
//
// pubchemscan extracts a fixed summary (formula, names, identifiers and
// related-record identifiers) from PubChem compound records.
//
// Usage:
//
//	pubchemscan lookup <cid>...
//	pubchemscan history [cid]
//	pubchemscan serve
//
// See --help for all available options.
package main

// main is the entry point for pubchemscan.
func main() {
	Execute()
}
