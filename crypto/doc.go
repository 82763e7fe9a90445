/*
Package crypto converts keys and signatures between the layouts produced by
external signers and the layouts the ledger verifies.

Approvers hold secp256k1 keys. A public key may arrive compressed (33 bytes)
or uncompressed (65 bytes) and is always stored compressed. Approvers sign the
keccak256 digest of the 32 byte proposal message and hand the signature over
wrapped in an envelope: one scheme tag byte followed by r, s, v and a padding
byte.

Before execution every collected signature is prepared: the public key is
recovered against the message and packed together with the signature into
field elements, which is the form the ledger reads from its advice inputs.
*/
package crypto
