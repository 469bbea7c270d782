package batch

import (
	"context"

	"go.uber.org/zap"

	"github.com/inodb/vibe-mv/internal/variant"
)

// LoadOptions filter the profiles returned by Load.
type LoadOptions struct {
	// MinMeanCoverage drops samples whose mean coverage is not above it.
	// Zero disables the filter.
	MinMeanCoverage float64
}

// Skipped records a sample that Load did not return.
type Skipped struct {
	Path   string
	Reason string
	Err    error
}

// Load profiles every path and returns the successful ones in input order.
// Failed samples are logged and reported in the skipped list rather than
// aborting the batch.
func (r *Runner) Load(ctx context.Context, paths []string, opts LoadOptions) ([]*variant.Profile, []Skipped, error) {
	var (
		profiles []*variant.Profile
		skipped  []Skipped
	)

	err := OrderedCollect(r.Run(ctx, Items(paths)), func(res WorkResult) error {
		if res.Err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("skipping sample", zap.String("path", res.Path), zap.Error(res.Err))
			skipped = append(skipped, Skipped{Path: res.Path, Reason: "error", Err: res.Err})
			return nil
		}

		if opts.MinMeanCoverage > 0 {
			mean, err := res.Profile.MeanCoverage()
			if err != nil || mean <= opts.MinMeanCoverage {
				r.logger.Info("skipping low-coverage sample",
					zap.String("path", res.Path),
					zap.Float64("mean_coverage", mean),
					zap.Float64("min_mean_coverage", opts.MinMeanCoverage))
				skipped = append(skipped, Skipped{Path: res.Path, Reason: "low coverage", Err: err})
				return nil
			}
		}

		profiles = append(profiles, res.Profile)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return profiles, skipped, nil
}
