package pipeline

import (
	"context"

	"github.com/Veraticus/local-guide/internal/model"
)

// Generator produces one candidate per call. It must not retry; the engine
// owns the retry policy.
type Generator interface {
	Generate(ctx context.Context, q model.Query, c model.Context) (model.Candidate, error)
	Name() string
}
