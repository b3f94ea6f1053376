package main

import (
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/resolve"
)

// logProgress reports dispatch progress through zap.
type logProgress struct {
	log *zap.Logger
}

func newLogProgress() *logProgress {
	return &logProgress{log: zap.L().With(zap.String("component", "dispatch"))}
}

func (p *logProgress) PointStarted(point, total int, sp geo.SamplePoint) {
	p.log.Debug("point started",
		zap.Int("point", point+1),
		zap.Int("total", total),
		zap.String("ll", geo.FormatLocation(sp.Location, sp.ZoomLevel)),
	)
}

func (p *logProgress) PageFetched(point, page, records, added, aggregate int) {
	p.log.Debug("page fetched",
		zap.Int("point", point+1),
		zap.Int("page", page),
		zap.Int("records", records),
		zap.Int("added", added),
		zap.Int("aggregate", aggregate),
	)
}

func (p *logProgress) PointFinished(point, aggregate int, err error) {
	p.log.Debug("point finished",
		zap.Int("point", point+1),
		zap.Int("aggregate", aggregate),
		zap.Bool("failed", err != nil),
	)
}

// logResolveProgress returns a batch progress callback that logs each entity.
func logResolveProgress() resolve.ProgressFunc {
	log := zap.L().With(zap.String("component", "resolve"))
	return func(done, total int, ent model.ResolvedEntity) {
		fields := []zap.Field{
			zap.Int("done", done),
			zap.Int("total", total),
			zap.String("name", ent.QueryName),
			zap.Stringer("tier", ent.ConfidenceTier),
		}
		if ent.ErrorReason != "" {
			log.Info("entity unresolved", append(fields, zap.String("reason", ent.ErrorReason))...)
			return
		}
		log.Info("entity resolved", append(fields, zap.String("phone", ent.Phone))...)
	}
}
