// Package reconcile merges batches of newly extracted loads into an
// account's canonical load set, deduplicating by load_id.
package reconcile

import (
	"log/slog"
	"strings"

	"github.com/freightline/loadbook/internal/entity"
)

// Result summarizes one reconciliation pass.
type Result struct {
	Added   int
	Merged  int // reported to callers as "duplicates" or "refreshed"
	Skipped int // candidates without a load_id; never persisted

	// Canonical is the updated canonical set: prior records (merged where a
	// candidate matched) followed by new additions, in stable order.
	Canonical []entity.Load

	// Writes is the deduplicated upsert set: exactly one row per load_id
	// touched by this batch, safe for a single multi-row transaction.
	Writes []entity.Load

	// MergedIDs lists the load_ids that hit an existing record, for
	// duplicate-detail reporting.
	MergedIDs []string
}

// Engine applies the gap-filling merge. It is pure: persistence is the
// caller's job, using Result.Writes.
type Engine struct {
	log *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{log: logger}
}

// Reconcile walks the batch in input order against the existing canonical
// set. Guarantees: at most one canonical load per load_id; fields only ever
// fill in across merges; two batch candidates with the same load_id collapse
// to a single write with the later candidate's present fields layered on.
func (e *Engine) Reconcile(existing, batch []entity.Load) Result {
	var res Result

	// current holds the evolving canonical record per load_id. Existing
	// records without an id stay in the canonical set but can never be
	// merged into.
	current := make(map[string]entity.Load, len(existing))
	order := make([]string, 0, len(existing)+len(batch))
	var unkeyed []entity.Load
	for _, l := range existing {
		id := strings.TrimSpace(l.LoadID)
		if id == "" {
			unkeyed = append(unkeyed, l)
			continue
		}
		current[id] = l
		order = append(order, id)
	}

	touched := make(map[string]bool, len(batch))
	for _, cand := range batch {
		id := strings.TrimSpace(cand.LoadID)
		if id == "" {
			res.Skipped++
			e.log.Warn("reconcile.skipped_no_load_id", "source_file", cand.SourceFile)
			continue
		}
		if prev, ok := current[id]; ok {
			current[id] = MergeLoad(prev, cand)
			res.Merged++
			if !touched[id] {
				res.MergedIDs = append(res.MergedIDs, id)
			}
		} else {
			current[id] = cand
			order = append(order, id)
			res.Added++
		}
		touched[id] = true
	}

	res.Canonical = make([]entity.Load, 0, len(unkeyed)+len(order))
	res.Canonical = append(res.Canonical, unkeyed...)
	for _, id := range order {
		res.Canonical = append(res.Canonical, current[id])
	}

	res.Writes = make([]entity.Load, 0, len(touched))
	for _, id := range order {
		if touched[id] {
			res.Writes = append(res.Writes, current[id])
		}
	}

	e.log.Info("reconcile.done",
		"existing", len(existing),
		"batch", len(batch),
		"added", res.Added,
		"merged", res.Merged,
		"skipped", res.Skipped,
		"writes", len(res.Writes),
	)
	return res
}
