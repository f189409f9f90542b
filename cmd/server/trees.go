package main

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"foxhollow.gg/internal/config"
	"foxhollow.gg/internal/store"
)

// ensureTrees generates the static tree field exactly once: positions are
// sampled uniformly over the map, rejecting any inside the spawn-safe radius,
// then persisted. Later runs reuse the stored field unchanged.
func ensureTrees(ctx context.Context, st *store.Store, tune config.Tuning, seed int64, logger *zap.SugaredLogger) error {
	n, err := st.TreeCount(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	trees := make([]store.Tree, 0, tune.TreeCount)
	for len(trees) < tune.TreeCount {
		x := (rng.Float64()*2 - 1) * tune.MapSize
		y := (rng.Float64()*2 - 1) * tune.MapSize
		if math.Hypot(x, y) <= tune.SafeRadius {
			continue
		}
		trees = append(trees, store.Tree{X: x, Y: y})
	}
	if err := st.InsertTrees(ctx, trees); err != nil {
		return err
	}
	logger.Infow("generated world trees", "count", len(trees))
	return nil
}
