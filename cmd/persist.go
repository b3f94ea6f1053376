package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/resolve"
	"github.com/sells-group/phone-finder/internal/search"
	"github.com/sells-group/phone-finder/internal/store"
)

// saveSearch records a finished area search. A non-nil runErr marks the run
// failed; whatever places were collected are still saved.
func saveSearch(ctx context.Context, st store.Store, req search.Request, res *search.Result, runErr error) (string, error) {
	run, err := st.CreateRun(ctx, model.RunKindSearch, req)
	if err != nil {
		return "", err
	}
	if res != nil {
		if err := st.SavePlaces(ctx, run.ID, res.Places); err != nil {
			return run.ID, err
		}
	}
	if err := finishRun(ctx, st, run.ID, statsOf(res), runErr); err != nil {
		return run.ID, err
	}
	return run.ID, nil
}

// resolveParams is the recorded request of a resolve run.
type resolveParams struct {
	Names []string      `json:"names"`
	Area  *resolve.Area `json:"area,omitempty"`
}

// resolveStats counts entities by tier.
type resolveStats struct {
	Total      int            `json:"total"`
	Unresolved int            `json:"unresolved"`
	ByTier     map[string]int `json:"by_tier"`
}

func summarizeEntities(ents []model.ResolvedEntity) resolveStats {
	s := resolveStats{Total: len(ents), ByTier: map[string]int{}}
	for _, e := range ents {
		s.ByTier[e.ConfidenceTier.String()]++
		if e.ErrorReason != "" {
			s.Unresolved++
		}
	}
	return s
}

// saveResolve records a finished resolve batch.
func saveResolve(ctx context.Context, st store.Store, params resolveParams, ents []model.ResolvedEntity, runErr error) (string, error) {
	run, err := st.CreateRun(ctx, model.RunKindResolve, params)
	if err != nil {
		return "", err
	}
	if err := st.SaveEntities(ctx, run.ID, ents); err != nil {
		return run.ID, err
	}
	if err := finishRun(ctx, st, run.ID, summarizeEntities(ents), runErr); err != nil {
		return run.ID, err
	}
	return run.ID, nil
}

func statsOf(res *search.Result) any {
	if res == nil {
		return nil
	}
	return res.Stats
}

func finishRun(ctx context.Context, st store.Store, runID string, stats any, runErr error) error {
	if runErr != nil {
		return eris.Wrap(st.FailRun(ctx, runID, runErr.Error()), "fail run")
	}
	if err := st.CompleteRun(ctx, runID, stats); err != nil {
		return eris.Wrap(err, "complete run")
	}
	zap.L().Info("run saved", zap.String("run_id", runID))
	return nil
}
