package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/local-guide/internal/model"
)

// HealthStatus is the state of one component or of the whole system.
type HealthStatus string

// Health states, from best to worst.
const (
	HealthHealthy HealthStatus = "healthy"
	HealthWarning HealthStatus = "warning"
	HealthError   HealthStatus = "error"
)

func (h HealthStatus) rank() int {
	switch h {
	case HealthHealthy:
		return 0
	case HealthWarning:
		return 1
	default:
		return 2
	}
}

// ComponentHealth reports one component.
type ComponentHealth struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// Health is the per-component report plus the overall status, which is the
// worst component status.
type Health struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
}

const classifierProbe = "Where can I eat breakfast?"

// Health checks every component.
func (e *Engine) Health(ctx context.Context) Health {
	components := []ComponentHealth{
		e.knowledgeHealth(ctx),
		e.classifierHealth(),
		{Name: "generator", Status: HealthHealthy, Detail: e.components.Generator.Name()},
		e.guardHealth(),
	}

	overall := HealthHealthy
	for _, c := range components {
		if c.Status.rank() > overall.rank() {
			overall = c.Status
		}
	}
	return Health{Status: overall, Components: components}
}

func (e *Engine) knowledgeHealth(ctx context.Context) ComponentHealth {
	cities := e.Cities()
	var failed []string
	for _, city := range cities {
		if _, err := e.components.Binder.Load(ctx, e.components.Source, city); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", city, err))
		}
	}

	h := ComponentHealth{Name: "knowledge", Status: HealthHealthy}
	switch {
	case len(failed) == 0:
		h.Detail = fmt.Sprintf("%d cities loaded", len(cities))
	case len(failed) < len(cities):
		h.Status = HealthWarning
		h.Detail = strings.Join(failed, "; ")
	default:
		h.Status = HealthError
		h.Detail = strings.Join(failed, "; ")
	}
	return h
}

func (e *Engine) classifierHealth() ComponentHealth {
	h := ComponentHealth{Name: "classifier", Status: HealthHealthy}
	if v := e.components.Classifier.Classify(""); v.Accepted() {
		h.Status = HealthError
		h.Detail = "empty query was accepted"
		return h
	}
	if v := e.components.Classifier.Classify(classifierProbe); !v.Accepted() {
		h.Status = HealthWarning
		h.Detail = fmt.Sprintf("probe query rejected: %s", v.Reason)
	}
	return h
}

func (e *Engine) guardHealth() ComponentHealth {
	probe := model.Context{City: "probe", Text: "probe context"}
	probe.Fingerprint = model.Fingerprint(probe.Text)

	h := ComponentHealth{Name: "guard", Status: HealthHealthy}
	for _, phrase := range model.RefusalPhrases() {
		if v := e.verify(string(phrase), probe); !v.Approved {
			h.Status = HealthError
			h.Detail = fmt.Sprintf("refusal phrase rejected: %s", v.Reason)
			return h
		}
	}
	if v := e.verify("The moon is made of cheese.", probe); v.Approved {
		h.Status = HealthError
		h.Detail = "ungrounded probe was approved"
	}
	return h
}
