// Package runspace expands a run_space block into an ordered sequence of
// per-run context overlays and drives one orchestrator run per entry under
// a shared launch identity.
package runspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/semantiva/semantiva-go/internal/identity"
	"github.com/semantiva/semantiva-go/internal/spec"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Entry is one planned run: its position and the context overlay it runs
// under.
type Entry struct {
	Index   int
	Context map[string]any
}

// Plan is the deterministic expansion of a run_space block.
type Plan struct {
	SpecID   string
	InputsID string
	Combine  string
	Entries  []Entry

	// Fingerprints holds per-input content hashes when external inputs are
	// declared.
	Fingerprints map[string]string
}

// PlanBlocks expands the run-space spec. Expansion is deterministic: keys
// are walked in sorted order and blocks in declaration order.
func PlanBlocks(rs *spec.RunSpaceBlock) (*Plan, error) {
	if rs == nil || len(rs.Blocks) == 0 {
		return nil, semerrors.NewSpecFieldError("run_space", "no blocks declared", nil)
	}

	seen := make(map[string]int)
	expansions := make([][]map[string]any, 0, len(rs.Blocks))
	for i, block := range rs.Blocks {
		for key := range block.Context {
			if prev, dup := seen[key]; dup {
				return nil, semerrors.NewSpecFieldError("run_space",
					fmt.Sprintf("context key %q appears in blocks %d and %d", key, prev, i), nil)
			}
			seen[key] = i
		}
		expanded, err := expandBlock(i, block)
		if err != nil {
			return nil, err
		}
		expansions = append(expansions, expanded)
	}

	combine := rs.Combine
	if combine == "" {
		combine = "combinatorial"
	}
	overlays, err := combineExpansions(combine, expansions)
	if err != nil {
		return nil, err
	}

	if rs.MaxRuns > 0 && len(overlays) > rs.MaxRuns {
		return nil, semerrors.NewMaxRunsError(len(overlays), rs.MaxRuns)
	}

	specID, err := identity.RunSpaceSpecID(canonicalRunSpace(rs, combine))
	if err != nil {
		return nil, err
	}

	plan := &Plan{SpecID: specID, Combine: combine}
	for i, overlay := range overlays {
		plan.Entries = append(plan.Entries, Entry{Index: i, Context: overlay})
	}

	if len(rs.Inputs) > 0 {
		plan.Fingerprints = make(map[string]string, len(rs.Inputs))
		for _, name := range sortedAnyKeys(rs.Inputs) {
			canonical, err := identity.Canonicalize(rs.Inputs[name])
			if err != nil {
				return nil, err
			}
			sum := sha256.Sum256(canonical)
			plan.Fingerprints[name] = hex.EncodeToString(sum[:])
		}
		allInputs, err := identity.Canonicalize(rs.Inputs)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(allInputs)
		plan.InputsID = "rsin-" + hex.EncodeToString(sum[:])
	}

	return plan, nil
}

func expandBlock(blockIndex int, block spec.RunSpaceUnit) ([]map[string]any, error) {
	keys := make([]string, 0, len(block.Context))
	for key := range block.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	switch block.Mode {
	case "by_position":
		size := -1
		for _, key := range keys {
			if size == -1 {
				size = len(block.Context[key])
				continue
			}
			if len(block.Context[key]) != size {
				return nil, semerrors.NewSpecFieldError("run_space",
					fmt.Sprintf("by_position block %d has unequal list lengths (key %q)", blockIndex, key), nil)
			}
		}
		overlays := make([]map[string]any, size)
		for i := 0; i < size; i++ {
			overlay := make(map[string]any, len(keys))
			for _, key := range keys {
				overlay[key] = block.Context[key][i]
			}
			overlays[i] = overlay
		}
		return overlays, nil

	case "combinatorial":
		overlays := []map[string]any{{}}
		for _, key := range keys {
			values := block.Context[key]
			next := make([]map[string]any, 0, len(overlays)*len(values))
			for _, overlay := range overlays {
				for _, value := range values {
					grown := make(map[string]any, len(overlay)+1)
					for k, v := range overlay {
						grown[k] = v
					}
					grown[key] = value
					next = append(next, grown)
				}
			}
			overlays = next
		}
		return overlays, nil

	default:
		return nil, semerrors.NewSpecFieldError("run_space",
			fmt.Sprintf("block %d has unknown mode %q", blockIndex, block.Mode), nil)
	}
}

func combineExpansions(combine string, expansions [][]map[string]any) ([]map[string]any, error) {
	switch combine {
	case "combinatorial":
		overlays := []map[string]any{{}}
		for _, expansion := range expansions {
			next := make([]map[string]any, 0, len(overlays)*len(expansion))
			for _, overlay := range overlays {
				for _, blockOverlay := range expansion {
					merged := make(map[string]any, len(overlay)+len(blockOverlay))
					for k, v := range overlay {
						merged[k] = v
					}
					for k, v := range blockOverlay {
						merged[k] = v
					}
					next = append(next, merged)
				}
			}
			overlays = next
		}
		return overlays, nil

	case "by_position":
		size := -1
		for i, expansion := range expansions {
			if size == -1 {
				size = len(expansion)
				continue
			}
			if len(expansion) != size {
				return nil, semerrors.NewSpecFieldError("run_space",
					fmt.Sprintf("by_position combine requires equal block expansions (block %d)", i), nil)
			}
		}
		overlays := make([]map[string]any, size)
		for i := 0; i < size; i++ {
			merged := make(map[string]any)
			for _, expansion := range expansions {
				for k, v := range expansion[i] {
					merged[k] = v
				}
			}
			overlays[i] = merged
		}
		return overlays, nil

	default:
		return nil, semerrors.NewSpecFieldError("run_space",
			fmt.Sprintf("unknown combine mode %q", combine), nil)
	}
}

// canonicalRunSpace reduces the spec to the fields that define its
// identity: the resolved combine mode, blocks (mode + context), and
// max_runs. Defaults are resolved before hashing so an omitted combine and
// an explicit "combinatorial" produce the same ID.
func canonicalRunSpace(rs *spec.RunSpaceBlock, combine string) map[string]any {
	blocks := make([]any, 0, len(rs.Blocks))
	for _, block := range rs.Blocks {
		ctx := make(map[string]any, len(block.Context))
		for key, values := range block.Context {
			ctx[key] = values
		}
		blocks = append(blocks, map[string]any{
			"mode":    block.Mode,
			"context": ctx,
		})
	}
	canonical := map[string]any{
		"combine": combine,
		"blocks":  blocks,
	}
	if rs.MaxRuns > 0 {
		canonical["max_runs"] = rs.MaxRuns
	}
	return canonical
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
