package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "timelock/event/v1"
	DomainState = "timelock/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of a log entry.
// The index is part of the hash, so two identical deposits at different
// positions get different IDs.
func EventID(index int64, kind, sender, amount string, opSeq int64) (string, error) {
	obj := IRObject{
		"index":  IRInt(index),
		"kind":   IRString(kind),
		"sender": IRString(sender),
		"amount": IRString(amount),
		"op_seq": IRInt(opSeq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// StateHash computes a digest over a vault state object. Replay compares
// these digests to prove a rebuilt vault matches the stored one.
func StateHash(state IRObject) (string, error) {
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(index int64, kind, sender, amount string, opSeq int64) string {
	id, err := EventID(index, kind, sender, amount, opSeq)
	if err != nil {
		panic(err)
	}
	return id
}
