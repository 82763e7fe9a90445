/*
Package multisig implements k-of-n authorization of ledger transactions.

An account is set up with an ordered list of approver slots, each bound to
the commitment of one secp256k1 public key, and a threshold. Slot indices
never change.

Authorization happens in two steps. Propose runs the requested operation
against the ledger in a mode that never finalizes and returns the proposal:
the summary commitment, which is the message approvers sign, plus the
encoded summary and request. The caller collects signatures off-band and
hands them to Execute as a sparse array indexed by slot. Execute turns every
collected signature into an advice entry and submits the request. The ledger
checks the threshold itself.

ProposalStore is an optional bookkeeping helper that records proposals and
the signatures collected for them.
*/
package multisig
