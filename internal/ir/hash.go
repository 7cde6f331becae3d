package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep ids of different record kinds disjoint.
const (
	DomainInvocation = "guardvault/invocation/v1"
	DomainCompletion = "guardvault/completion/v1"
	DomainSignal     = "guardvault/signal/v1"
	DomainManifest   = "guardvault/manifest/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InvocationID is the content address of a call. The sender and block time
// are part of identity: the same arguments sent by another account or at
// another time are a different call.
func InvocationID(flowToken string, action ActionURI, args IRObject, sender string, blockTime, seq int64) (string, error) {
	if args == nil {
		args = IRObject{}
	}
	canonical, err := MarshalCanonical(IRObject{
		"flow_token": IRString(flowToken),
		"action_uri": IRString(action),
		"args":       args,
		"sender":     IRString(sender),
		"block_time": IRInt(blockTime),
		"seq":        IRInt(seq),
	})
	if err != nil {
		return "", fmt.Errorf("invocation id: %w", err)
	}
	return hashWithDomain(DomainInvocation, canonical), nil
}

// CompletionID is the content address of an outcome.
func CompletionID(invocationID, outputCase string, result IRObject, seq int64) (string, error) {
	if result == nil {
		result = IRObject{}
	}
	canonical, err := MarshalCanonical(IRObject{
		"invocation_id": IRString(invocationID),
		"output_case":   IRString(outputCase),
		"result":        result,
		"seq":           IRInt(seq),
	})
	if err != nil {
		return "", fmt.Errorf("completion id: %w", err)
	}
	return hashWithDomain(DomainCompletion, canonical), nil
}

// SignalID is the content address of a signal.
func SignalID(completionID string, seq int64, source, name string, args IRArray) (string, error) {
	if args == nil {
		args = IRArray{}
	}
	canonical, err := MarshalCanonical(IRObject{
		"completion_id": IRString(completionID),
		"seq":           IRInt(seq),
		"source":        IRString(source),
		"name":          IRString(name),
		"args":          args,
	})
	if err != nil {
		return "", fmt.Errorf("signal id: %w", err)
	}
	return hashWithDomain(DomainSignal, canonical), nil
}

// ManifestHash fingerprints a deployment manifest's source bytes.
func ManifestHash(source []byte) string {
	return hashWithDomain(DomainManifest, source)
}

// MustInvocationID panics on error. For tests and known-good input.
func MustInvocationID(flowToken string, action ActionURI, args IRObject, sender string, blockTime, seq int64) string {
	id, err := InvocationID(flowToken, action, args, sender, blockTime, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// MustCompletionID panics on error.
func MustCompletionID(invocationID, outputCase string, result IRObject, seq int64) string {
	id, err := CompletionID(invocationID, outputCase, result, seq)
	if err != nil {
		panic(err)
	}
	return id
}
