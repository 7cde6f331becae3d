// Package vault implements the custody contract bound to protector tokens.
//
// Vault id N belongs to protector token N. The vault never stores an owner
// of its own: OwnerOf reads through to the protector, so a completed
// guarded transfer of the protector moves the vault and its contents in the
// same step. The vault token itself cannot be moved or approved.
//
// The ledger records what each vault holds, keyed by asset contract and
// asset id. Fungible tokens have no sub-id and are keyed under id 0.
// Deposits pull assets through the external contract's own approval rules;
// withdrawals release them back to the caller.
//
// Who besides the owner may deposit or withdraw is governed by a Policy,
// evaluated by the pure IsPermitted predicate.
package vault
