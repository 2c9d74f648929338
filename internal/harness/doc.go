// Package harness runs vault scenarios as executable conformance tests.
//
// A scenario deploys a vault, drives it through timed operations from named
// accounts, and asserts on the event log and final state. Every run goes
// through the real engine and store, and finishes by replaying the journal.
//
// # Scenario Format
//
// Scenarios are YAML files. Times are seconds relative to start:
//
//	name: withdraw_after_unlock
//	description: "Owner withdraws once the lock expires"
//	start: 1700000000
//	create:
//	  owner: owner
//	  unlock_time: 86400
//	  deposit_deadline: 43200
//	  initial_value: "10"
//	steps:
//	  - at: 3600
//	    op: deposit
//	    caller: alice
//	    amount: "5"
//	    expect: { amount: "5", balance: "15" }
//	  - at: 3600
//	    op: withdraw
//	    caller: owner
//	    expect_error: NOT_YET_UNLOCKED
//	assertions:
//	  - type: final_state
//	    expect: { owner: owner, balance: "15" }
//	  - type: event_contains
//	    kind: Deposited
//	    sender: alice
//
// The accounts owner, alice, bob and carol are predefined; an accounts map
// adds or overrides names.
//
// # Assertion Types
//
//   - final_state: Compares owner, balance, unlock_time, deposit_deadline
//   - event_count: Verifies the log holds exactly N events
//   - event_order: Verifies event kinds appear in the given order
//   - event_contains: Verifies some event matches kind, sender and amount
//
// # Deterministic Testing
//
// The harness uses a manual time source, sequential op IDs and an
// in-memory SQLite database per run, so traces are identical across runs
// and can be compared with golden files (see RunWithGolden).
package harness
