// Package persist reads and writes the feedbackflow collections to a
// key-value medium.
//
// Each collection lives under a fixed key as a JSON array and is overwritten
// wholesale on every save. Loads and saves fail soft: a malformed or missing
// value falls back to fixture data and a failed write is logged, leaving the
// caller's in-memory state authoritative for the rest of the session.
//
// A separate marker key records that the medium has been seeded, so a
// collection later emptied by the user is never mistaken for a fresh install.
//
// Fixture and backup documents are YAML (JSON is accepted as a subset) and are
// checked against an embedded CUE schema before use.
package persist
