// Package ledger records a content marketplace: creators register digital
// content with a price, buyers' payments are recorded against that content,
// and per-item sales and revenue accrue as payments land.
//
// It exposes a single Service interface over two durable tables, content
// registrations and payment records, held by a pluggable Repository. Memory,
// LevelDB, SQLite and Postgres repositories live under repo/, and blob stores
// for the published content bytes live under storage/.
//
// The ledger only records payments. It never moves funds and never verifies
// transaction hashes; callers are identified by an opaque Identity passed to
// every operation.
//
// All monetary amounts are integers in e8s, the smallest unit of the
// reference currency (100,000,000 e8s = 1 ICP).
package ledger
