// Package harness runs conformance scenarios against the protocol engine.
//
// A scenario deploys a manifest, drives calls through a real engine on a
// throwaway journal, and checks outcomes, signals and final contract
// state:
//
//	name: guarded_transfer
//	description: "An initiator moves a protected token after its delay"
//	manifest: ../deploy/everdragons.cue
//	flow_token: e2e-flow
//	setup:
//	  - invoke: Asset.approve
//	    as: bob
//	    args: { asset: particle, spender: protected, id: 7 }
//	flow:
//	  - invoke: Protector.startTransfer
//	    as: alice
//	    args: { id: 1, to: fred, delay: 1000 }
//	    expect: { case: Success, result: { ready_at: 2000 } }
//	  - invoke: Protector.completeTransfer
//	    as: bob
//	    advance: 1000
//	    args: { id: 1 }
//	assertions:
//	  - type: owner_of
//	    id: 1
//	    owner: fred
//
// Setup steps must succeed. Flow steps are checked against their expect
// clause when one is given; advance moves the block clock forward before
// the call.
//
// # Assertion Types
//
//   - signal_emitted: a signal with the given name (and source, and leading
//     args) was emitted
//   - signal_order: the named signals first appear in this order
//   - signal_count: a signal was emitted exactly count times
//   - owner_of: protector token id is owned by owner
//   - vault_owner_of: the vault reports owner for id
//   - owned_amount: vault id holds amount of asset/asset_id
//   - version: the protector's active implementation version
//
// # Determinism
//
// Every scenario runs with a fixed flow token, a manual block clock that
// starts at the manifest's genesis time, and an in-memory journal. After
// the flow the journal is replayed into a freshly built world and any
// divergence fails the scenario. Golden traces (see RenderTrace) are
// therefore byte-stable.
package harness
