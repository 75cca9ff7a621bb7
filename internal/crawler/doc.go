// Package crawler resolves related-record identifiers from PubChem pages.
//
// PubChem exposes related compounds and substances as links to secondary
// pages rather than inline lists. The Resolver fetches such a page and scans
// its raw text for link_uid=<digits> tokens. The page is never parsed as
// HTML; the pattern match is all that is needed.
//
// # Politeness
//
// Secondary pages are served by the same infrastructure as the PUG View API,
// so fetches within one extraction are strictly sequential and separated by
// a random delay drawn from a DelayPolicy (5 to 8 seconds by default). Each
// extraction owns a Session that tracks whether a delay is due:
//
//	session := resolver.NewSession()
//	ids, err := session.Resolve(ctx, relatedURL)   // no delay
//	more, err := session.Resolve(ctx, substanceURL) // waits first
//
// Sessions share no timing state, so concurrent extractions do not wait on
// each other. Context cancellation interrupts a pending wait.
//
// # Failure handling
//
// A non-2xx response yields an empty identifier list and no error. Network
// failures and timeouts are returned to the caller.
package crawler
