// Package report renders compound lookups for output.
//
// This package contains writers for different output formats:
//   - JSONWriter: the compact extraction result, one object per line
//   - FullJSONWriter: the result wrapped with lookup metadata and the version
//   - MarkdownWriter: a Markdown document for sharing
//   - SimpleWriter: aligned plain text for terminal display
//
// Writers implement the Writer interface so the CLI can pick one by Format.
package report
