// Package config loads vault deployment parameters.
//
// Parameters are written in CUE (plain JSON is valid CUE) and unified with
// an embedded #Deployment schema, so unknown fields, malformed addresses and
// malformed amounts are reported with file positions before any vault is
// created.
package config

import (
	_ "embed"
	"fmt"
	"math/big"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

//go:embed schema.cue
var schemaSrc string

// DefaultUnlockIn applies when neither unlockTime nor unlockIn is given.
const DefaultUnlockIn = 24 * time.Hour

// Deployment is a resolved set of Create arguments.
type Deployment struct {
	Owner           common.Address
	UnlockTime      int64
	DepositDeadline int64
	InitialValue    *big.Int
}

// raw mirrors #Deployment after unification.
type raw struct {
	Owner             string `json:"owner"`
	UnlockTime        *int64 `json:"unlockTime,omitempty"`
	UnlockIn          string `json:"unlockIn,omitempty"`
	DepositDeadline   *int64 `json:"depositDeadline,omitempty"`
	DepositDeadlineIn string `json:"depositDeadlineIn,omitempty"`
	InitialValue      string `json:"initialValue"`
}

// LoadDeployment reads and resolves a parameters file. now anchors the
// relative durations.
func LoadDeployment(path string, now int64) (*Deployment, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deployment: %w", err)
	}
	return ParseDeployment(src, path, now)
}

// ParseDeployment validates src against #Deployment and resolves defaults:
// unlock defaults to now+24h, the deposit deadline defaults to the unlock
// time, and the initial value defaults to zero.
func ParseDeployment(src []byte, filename string, now int64) (*Deployment, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile deployment schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Deployment"))

	params := ctx.CompileBytes(src, cue.Filename(filename))
	if err := params.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := def.Unify(params)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var r raw
	if err := v.Decode(&r); err != nil {
		return nil, formatCUEError(err)
	}

	return resolve(r, now, v)
}

func resolve(r raw, now int64, v cue.Value) (*Deployment, error) {
	d := &Deployment{Owner: common.HexToAddress(r.Owner)}

	switch {
	case r.UnlockTime != nil && r.UnlockIn != "":
		return nil, fieldError(v, "unlockIn", "set either unlockTime or unlockIn, not both")
	case r.UnlockTime != nil:
		d.UnlockTime = *r.UnlockTime
	case r.UnlockIn != "":
		t, err := after(now, r.UnlockIn)
		if err != nil {
			return nil, fieldError(v, "unlockIn", err.Error())
		}
		d.UnlockTime = t
	default:
		d.UnlockTime = now + int64(DefaultUnlockIn/time.Second)
	}

	switch {
	case r.DepositDeadline != nil && r.DepositDeadlineIn != "":
		return nil, fieldError(v, "depositDeadlineIn", "set either depositDeadline or depositDeadlineIn, not both")
	case r.DepositDeadline != nil:
		d.DepositDeadline = *r.DepositDeadline
	case r.DepositDeadlineIn != "":
		t, err := after(now, r.DepositDeadlineIn)
		if err != nil {
			return nil, fieldError(v, "depositDeadlineIn", err.Error())
		}
		d.DepositDeadline = t
	default:
		d.DepositDeadline = d.UnlockTime
	}

	value, ok := math.ParseBig256(r.InitialValue)
	if !ok {
		return nil, fieldError(v, "initialValue", fmt.Sprintf("invalid amount %q", r.InitialValue))
	}
	d.InitialValue = value

	return d, nil
}

func after(now int64, s string) (int64, error) {
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if dur%time.Second != 0 {
		return 0, fmt.Errorf("duration %s is not a whole number of seconds", s)
	}
	return now + int64(dur/time.Second), nil
}

// Error is a parameter problem with its source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(v cue.Value, field, message string) error {
	return &Error{
		Field:   field,
		Message: message,
		Pos:     v.LookupPath(cue.ParsePath(field)).Pos(),
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
