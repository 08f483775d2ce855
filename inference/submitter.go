// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"context"

	"go.uber.org/zap"

	"github.com/ik5/coughcap/ingest"
	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/metrics"
)

type Predictor interface {
	Predict(ctx context.Context, f media.File) (*Prediction, error)
}

// Submitter validates a file before any byte leaves the process.
type Submitter struct {
	validator *ingest.Validator
	predictor Predictor
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewSubmitter(v *ingest.Validator, p Predictor, log *zap.Logger, m *metrics.Metrics) *Submitter {
	if v == nil {
		v = ingest.NewValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Submitter{validator: v, predictor: p, log: log, metrics: m}
}

// Submit returns *ingest.RejectedError when f fails validation.
func (s *Submitter) Submit(ctx context.Context, f media.File) (*Prediction, error) {
	if verdict := s.validator.Validate(f); !verdict.Valid {
		s.metrics.Rejected(verdict.Reason)
		s.log.Info("file rejected", zap.String("name", f.Name), zap.String("reason", verdict.Reason))
		return nil, &ingest.RejectedError{Name: f.Name, Verdict: verdict}
	}

	return s.predictor.Predict(ctx, f)
}
