// Package repositories implements the storage layer for the bulk mutation
// service: the action log, the idempotency guard, the quota ledger and the
// account/token store, all over a single SQLite database.
//
// Components:
//   - [ActionRepository] : Actions and their per-entity items, written inside
//     one transaction per bulk execution via [WithTx]
//   - [IdempotencyRepository] : Client key to executed-action mapping
//   - [QuotaLedger] : Daily usage vs. budget with Pacific-midnight rollover
//     and self-maintenance (retention pruning, periodic VACUUM)
//   - [AccountRepository] : Per-user OAuth tokens for the provider boundary
package repositories
