// Package checksum gates artifact regeneration. Each generated artifact has
// a JSON sidecar holding a content hash of its exact bytes and a structure
// hash of the tracked module roots; an artifact is rewritten only when
// either differs from the prior record.
package checksum

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Record is the persisted per-artifact checksum pair.
type Record struct {
	Content   string `json:"content"`
	Structure string `json:"structure"`
}

// ContentHash digests exact artifact bytes. xxhash is not cryptographic;
// the sidecars only guard against accidental drift, so speed wins.
func ContentHash(data []byte) string {
	sum := xxhash.Sum64(data)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(b[:])
}

// SidecarPath is the sidecar location for an artifact.
func SidecarPath(artifactPath string) string {
	return artifactPath + ".hash.json"
}

// LoadRecord reads the prior sidecar record. A missing sidecar returns nil
// without error; a corrupt one is treated the same way so the next write
// repairs it.
func LoadRecord(artifactPath string) (*Record, error) {
	data, err := os.ReadFile(SidecarPath(artifactPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sidecar for %s: %w", artifactPath, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// WriteIfChanged writes the artifact and its sidecar when the checksum pair
// differs from the prior record (or no record exists). It reports whether a
// write happened. Regeneration is therefore idempotent: identical inputs
// leave both files untouched.
func WriteIfChanged(artifactPath string, content []byte, structureHash string) (bool, error) {
	rec := Record{Content: ContentHash(content), Structure: structureHash}

	prev, err := LoadRecord(artifactPath)
	if err != nil {
		return false, err
	}
	if prev != nil && *prev == rec {
		if _, err := os.Stat(artifactPath); err == nil {
			return false, nil
		}
		// Sidecar survived but the artifact did not; fall through and rewrite.
	}

	if err := os.WriteFile(artifactPath, content, 0o644); err != nil {
		return false, fmt.Errorf("write artifact %s: %w", artifactPath, err)
	}
	sidecar, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal sidecar for %s: %w", artifactPath, err)
	}
	if err := os.WriteFile(SidecarPath(artifactPath), sidecar, 0o644); err != nil {
		return false, fmt.Errorf("write sidecar for %s: %w", artifactPath, err)
	}
	return true, nil
}
