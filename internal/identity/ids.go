package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// nodeNamespace is the fixed UUIDv5 namespace for node identities. Derived
// once from the DNS namespace so every build agrees on it.
var nodeNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("node.semantiva.org"))

const runSpacePrefix = "semantiva:rscf1:"

// PipelineID hashes the canonical public fields of a graph into the stable
// pipeline identifier.
func PipelineID(graphFields any) (string, error) {
	canonical, err := Canonicalize(graphFields)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return "plid-" + hex.EncodeToString(sum[:]), nil
}

// NodeUUID derives the deterministic UUIDv5 for a node from its canonical
// structural fields (role, processor ref, params, ports). Preprocessor
// output never feeds this hash.
func NodeUUID(canonicalNodeFields any) (uuid.UUID, error) {
	canonical, err := Canonicalize(canonicalNodeFields)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(nodeNamespace, canonical), nil
}

// SemanticID hashes the sanitized preprocessor signature of a node together
// with its structural fields. Changes to a sweep expression move this ID
// while leaving NodeUUID untouched.
func SemanticID(canonicalFields any) (string, error) {
	canonical, err := Canonicalize(canonicalFields)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return "sem-" + hex.EncodeToString(sum[:16]), nil
}

// RunSpaceSpecID hashes a run-space spec under the rscf1 domain prefix.
func RunSpaceSpecID(spec any) (string, error) {
	canonical, err := Canonicalize(spec)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(runSpacePrefix), canonical...))
	return "rsid-" + hex.EncodeToString(sum[:]), nil
}

// NewRunID returns a unique per-execution identifier: a UTC timestamp for
// monotonic ordering plus a high-entropy suffix.
func NewRunID() string {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// nanosecond tail so the ID stays unique-ish rather than panicking.
		return fmt.Sprintf("run-%s-%012x", time.Now().UTC().Format("20060102T150405"), time.Now().UnixNano())
	}
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102T150405"), hex.EncodeToString(suffix))
}

// NewLaunchID returns the identifier shared by every run of one run-space
// launch. With an idempotency key the ID is its hash, so a retried launch
// reuses the same identity; otherwise a time-ordered UUID is issued.
func NewLaunchID(idempotencyKey string) string {
	if idempotencyKey != "" {
		sum := sha256.Sum256([]byte(runSpacePrefix + "launch:" + idempotencyKey))
		return "lch-" + hex.EncodeToString(sum[:16])
	}
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "lch-" + id.String()
}
