/*
Package ledger implements the execution engine the multisig service drives.

The engine keeps accounts, notes and transactions in a versioned iavl store.
Every submitted transaction is committed as a new version and the version
number is the ledger height.

A transaction runs against one account. It consumes input notes targeted at
the account, creates output notes paid out of the account vault (or minted,
for faucets), and produces a TransactionSummary. The summary commitment is the
message the account auth procedure checks. Multisig accounts require enough
valid approver signatures in the request advice map, faucets require none.

A dry run executes the same steps in a cache wrap that is always discarded.
When authorization fails, the returned UnauthorizedError carries the summary
that approvers have to sign.
*/
package ledger
