// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package pruner

import (
	log "github.com/inconshreveable/log15"

	"github.com/slatevm/slate/state"
)

// MaxVersionsPerBatch bounds how many versions one Prune call may
// delete, so pruning a ledger with a long backlog cannot stall commits.
const MaxVersionsPerBatch = 100

// Pruner discards historical versions older than a retention window.
// The latest state is never touched; only versioned entries and their
// journals go away, after which reads below the watermark fail with
// state.ErrPruned.
type Pruner struct {
	store  *state.Store
	window uint64
}

// New returns a pruner retaining the most recent [window] versions
// behind the latest one. A window of zero keeps only the latest
// version readable.
func New(store *state.Store, window uint64) *Pruner {
	return &Pruner{store: store, window: window}
}

// Window returns the retention window.
func (p *Pruner) Window() uint64 { return p.window }

// Prune advances the watermark toward [latestVersion] minus the window,
// deleting everything below it, and returns the new watermark. At most
// MaxVersionsPerBatch versions are deleted per call; call again to
// continue. The deletions are committed before returning.
func (p *Pruner) Prune(latestVersion uint64) (uint64, error) {
	watermark, err := p.store.PruneWatermark()
	if err != nil {
		return 0, err
	}
	if latestVersion < p.window {
		return watermark, nil
	}
	target := latestVersion - p.window
	if target <= watermark {
		return watermark, nil
	}
	if target-watermark > MaxVersionsPerBatch {
		target = watermark + MaxVersionsPerBatch
	}

	for version := watermark; version < target; version++ {
		if err := p.store.DeleteVersion(version, target); err != nil {
			return watermark, err
		}
	}
	if err := p.store.SetPruneWatermark(target); err != nil {
		return watermark, err
	}
	if err := p.store.Commit(); err != nil {
		return watermark, err
	}

	log.Debug("pruned ledger history", "from", watermark, "to", target, "latest", latestVersion)
	return target, nil
}
