// Package repositories implements SQLite persistence for locally tracked state.
//
// [JobRepository] keeps one row per backend job this client has enqueued or watched,
// so `jobs history` works without asking the backend. Rows carry a per-table sequence
// from [NextSequence] alongside their UUID.
package repositories
