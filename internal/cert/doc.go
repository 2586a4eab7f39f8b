// Package cert defines the domain model for the batch lifecycle and
// credential-integrity core: batches, inspections, credentials, the record
// store contract, canonical content hashing, and the shared error taxonomy.
//
// The package is pure domain code with no I/O. Persistence lives in
// internal/store, lifecycle rules in internal/lifecycle, and ledger anchoring
// in internal/anchor.
package cert
