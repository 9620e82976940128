// Package outputlog formats greedy fits as human-readable text blocks and
// keeps the append-only history of blocks the user chose to save.
package outputlog
