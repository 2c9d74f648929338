package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/testutil"
)

// Scenario defines a vault conformance scenario.
// A scenario creates a vault, drives it through a sequence of timed steps,
// and asserts on the resulting trace, event log and final state.
//
// All times in a scenario (step offsets, unlock times, deadlines, and the
// times in final_state) are seconds relative to Start.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the absolute unix time that offsets are measured from.
	// Defaults to testutil.T0.
	Start int64 `yaml:"start,omitempty"`

	// Accounts maps names to hex addresses. The names owner, alice, bob
	// and carol are predefined and may be overridden.
	Accounts map[string]string `yaml:"accounts,omitempty"`

	// Create deploys the vault before any step runs.
	Create CreateStep `yaml:"create"`

	// Steps run in order, each at its own offset.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: final_state, event_count, event_order, event_contains
	Assertions []Assertion `yaml:"assertions"`
}

// CreateStep holds the deployment parameters for the scenario's vault.
type CreateStep struct {
	At              int64  `yaml:"at,omitempty"`
	Owner           string `yaml:"owner"`
	UnlockTime      int64  `yaml:"unlock_time"`
	DepositDeadline int64  `yaml:"deposit_deadline"`
	InitialValue    string `yaml:"initial_value,omitempty"`

	// ExpectError is set when the deployment itself should be refused.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step is one attempted operation.
type Step struct {
	// At is the offset from Start at which the step runs.
	At int64 `yaml:"at"`

	// Op is the operation: create, deposit, withdraw, set_owner,
	// set_unlock_time or set_deposit_deadline.
	Op string `yaml:"op"`

	// Caller is an account name or hex address.
	Caller string `yaml:"caller"`

	Amount          string `yaml:"amount,omitempty"`
	NewOwner        string `yaml:"new_owner,omitempty"`
	UnlockTime      *int64 `yaml:"unlock_time,omitempty"`
	DepositDeadline *int64 `yaml:"deposit_deadline,omitempty"`
	InitialValue    string `yaml:"initial_value,omitempty"`

	// ExpectError is the vault or engine error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Expect checks a successful step's outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a successful step.
// Empty fields are not checked.
type ExpectClause struct {
	// Amount is the value moved by a deposit or withdrawal.
	Amount string `yaml:"amount,omitempty"`

	// Balance is the vault balance after the step.
	Balance string `yaml:"balance,omitempty"`
}

// Assertion validates the event log or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": Compare vault fields with Expect
	// - "event_count": Check the log holds exactly Count events
	// - "event_order": Check Kinds appear in the log in order
	// - "event_contains": Check some event matches Kind, Sender and Amount
	Type string `yaml:"type"`

	// Expect holds expected vault fields (used by final_state).
	// Keys: owner, balance, unlock_time, deposit_deadline. Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of events (used by event_count).
	Count *int `yaml:"count,omitempty"`

	// Kinds is the expected event kind order (used by event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Kind, Sender and Amount describe the event (used by event_contains).
	// Empty fields match anything.
	Kind   string `yaml:"kind,omitempty"`
	Sender string `yaml:"sender,omitempty"`
	Amount string `yaml:"amount,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertEventContains = "event_contains"
)

// defaultAccounts are available to every scenario.
var defaultAccounts = map[string]common.Address{
	"owner": testutil.Owner,
	"alice": testutil.Other,
	"bob":   testutil.Third,
	"carol": testutil.NewOwner,
}

var finalStateKeys = map[string]bool{
	"owner":            true,
	"balance":          true,
	"unlock_time":      true,
	"deposit_deadline": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Start == 0 {
		scenario.Start = testutil.T0
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Start < 0 {
		return fmt.Errorf("start must not be negative")
	}

	for name, addr := range s.Accounts {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("account %q: invalid address %q", name, addr)
		}
	}

	if s.Create.Owner == "" {
		return fmt.Errorf("create.owner is required")
	}
	if _, err := s.account(s.Create.Owner); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(assertion); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	return nil
}

func validateStep(s *Scenario, step Step) error {
	if step.Caller == "" {
		return fmt.Errorf("caller is required")
	}
	if _, err := s.account(step.Caller); err != nil {
		return err
	}
	if step.ExpectError != "" && step.Expect != nil {
		return fmt.Errorf("expect and expect_error are mutually exclusive")
	}

	switch engine.OpKind(step.Op) {
	case engine.OpCreate:
		if step.UnlockTime == nil || step.DepositDeadline == nil {
			return fmt.Errorf("create requires unlock_time and deposit_deadline")
		}
	case engine.OpDeposit:
		if step.Amount == "" {
			return fmt.Errorf("deposit requires amount")
		}
	case engine.OpWithdraw:
	case engine.OpSetOwner:
		if step.NewOwner == "" {
			return fmt.Errorf("set_owner requires new_owner")
		}
		if _, err := s.account(step.NewOwner); err != nil {
			return err
		}
	case engine.OpSetUnlockTime:
		if step.UnlockTime == nil {
			return fmt.Errorf("set_unlock_time requires unlock_time")
		}
	case engine.OpSetDepositDeadline:
		if step.DepositDeadline == nil {
			return fmt.Errorf("set_deposit_deadline requires deposit_deadline")
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// validateAssertion checks that an assertion has required fields for its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("final_state requires expect")
		}
		for k := range a.Expect {
			if !finalStateKeys[k] {
				return fmt.Errorf("final_state: unknown field %q", k)
			}
		}
	case AssertEventCount:
		if a.Count == nil {
			return fmt.Errorf("event_count requires count")
		}
		if *a.Count < 0 {
			return fmt.Errorf("event_count: count must not be negative")
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("event_order requires kinds")
		}
	case AssertEventContains:
		if a.Kind == "" && a.Sender == "" && a.Amount == "" {
			return fmt.Errorf("event_contains requires kind, sender or amount")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// account resolves an account name, or a literal hex address, to an address.
func (s *Scenario) account(name string) (common.Address, error) {
	if addr, ok := s.accounts()[name]; ok {
		return addr, nil
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	return common.Address{}, fmt.Errorf("unknown account %q", name)
}

// accountName maps an address back to the name a scenario knows it by.
// When several names share an address the alphabetically first wins;
// unknown addresses render as checksummed hex.
func (s *Scenario) accountName(addr common.Address) string {
	accounts := s.accounts()
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if accounts[name] == addr {
			return name
		}
	}
	return addr.Hex()
}

// accounts merges the predefined accounts with the scenario's own.
func (s *Scenario) accounts() map[string]common.Address {
	merged := make(map[string]common.Address, len(defaultAccounts)+len(s.Accounts))
	for name, addr := range defaultAccounts {
		merged[name] = addr
	}
	for name, hex := range s.Accounts {
		merged[name] = common.HexToAddress(hex)
	}
	return merged
}
