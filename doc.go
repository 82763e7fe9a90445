/*
Package quorum defines the primitives shared by every other package of the
multisig service: field elements and words used by the ledger, the hash
functions that produce commitments, account identifiers and the storage
interfaces the ledger state is written through.

The service lets a group of approvers authorize operations on a shared account
under a k-of-n threshold policy. Look into x/ledger for the execution engine,
x/multisig for the propose/execute protocol and client for the single writer
actor that owns the engine.
*/
package quorum
