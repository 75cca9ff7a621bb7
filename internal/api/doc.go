// Package api serves compound lookups over HTTP.
//
// Routes:
//
//	GET /health
//	GET /api/compounds                      cached compounds
//	GET /api/compounds/{cid}                lookup (?refresh=true, ?format=markdown)
//	GET /api/compounds/{cid}/history        stored lookups, newest first
//	GET /api/related/{id}                   compounds whose related records contain id (?type=)
//
// Lookup failures map to status codes: an invalid CID is 400, a record
// PubChem does not have is 404, a record without the required sections is
// 422 and any other upstream failure is 502.
package api
