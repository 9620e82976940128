// Package storage persists the encoded session aggregate. Backends store an
// opaque byte payload keyed by application identity: in memory, in a JSON
// file replaced atomically, or in an embedded SQLite database.
package storage
