// Package protector implements the protector token collection and the
// guarded-transfer state machine attached to it.
//
// # Initiator lifecycle
//
// Initiator state is scoped per owner address, not per token:
//
//	NoInitiator --SetInitiator--> InitiatorPending --ConfirmInitiator--> InitiatorActive
//	     ^                              |                                      |
//	     +-------RevokeInitiator--------+------------RevokeInitiator-----------+
//
// A pending proposal may be withdrawn by the owner. An active initiator can
// only be removed by the initiator itself; a thief holding the owner key
// cannot switch the guard off.
//
// # Guarded transfers
//
// While an owner has an active initiator, every direct transfer of that
// owner's tokens fails with TransferNotPermitted. The only path out is:
//
//	StartTransfer (initiator) -> wait MinDelay seconds -> CompleteTransfer (owner)
//
// The timelock is pull-based: a request stores its block time and delay,
// and CompleteTransfer compares them with the caller's block time. Nothing
// is scheduled. Each token has at most one outstanding request.
//
// # Upgrades
//
// UpgradeTo swaps the active Implementation. Only the deploying address may
// call it; the admin that mints tokens has no upgrade rights.
package protector
