package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/local-guide/internal/model"
	"github.com/schollz/progressbar/v3"
)

// Asker answers one question for a city. *pipeline.Engine satisfies it.
type Asker interface {
	Ask(ctx context.Context, city model.City, text string) (model.Response, error)
}

// Result is the outcome of one scenario.
type Result struct {
	Err      error
	Scenario Scenario
	Failure  string
	Response model.Response
	Duration time.Duration
	Passed   bool
}

// Report summarizes a suite run.
type Report struct {
	Suite    string
	Results  []Result
	Duration time.Duration
	Passed   int
	Failed   int
}

// Failures returns the failed results in suite order.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every scenario passed.
func (r Report) OK() bool {
	return r.Failed == 0 && len(r.Results) > 0
}

// Runner executes suites sequentially.
type Runner struct {
	asker    Asker
	progress io.Writer
	logger   *slog.Logger
	now      func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithProgress draws a progress bar on w.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.progress = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner over asker.
func NewRunner(asker Asker, opts ...RunnerOption) *Runner {
	r := &Runner{
		asker:  asker,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run asks every scenario in order. If ctx ends, the partial report is
// returned with ctx's error.
func (r *Runner) Run(ctx context.Context, suite Suite) (Report, error) {
	report := Report{Suite: suite.Name, Results: make([]Result, 0, len(suite.Scenarios))}
	start := r.now()

	bar := r.newProgressBar(len(suite.Scenarios), suite.Name)
	for _, sc := range suite.Scenarios {
		if err := ctx.Err(); err != nil {
			report.Duration = r.now().Sub(start)
			return report, err
		}

		res := r.runScenario(ctx, sc)
		if res.Err != nil && ctx.Err() != nil {
			report.Duration = r.now().Sub(start)
			return report, ctx.Err()
		}

		report.Results = append(report.Results, res)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
			r.logger.Warn("scenario failed",
				"scenario", sc.Name,
				"city", sc.City,
				"failure", res.Failure)
		}

		if bar != nil {
			if err := bar.Add(1); err != nil {
				r.logger.Warn("Failed to update progress bar", "error", err)
			}
		}
	}

	report.Duration = r.now().Sub(start)
	r.logger.Info("suite finished",
		"suite", suite.Name,
		"passed", report.Passed,
		"failed", report.Failed,
		"duration", report.Duration)
	return report, nil
}

func (r *Runner) runScenario(ctx context.Context, sc Scenario) Result {
	start := r.now()
	resp, err := r.asker.Ask(ctx, sc.City, sc.Prompt)
	res := Result{
		Scenario: sc,
		Response: resp,
		Err:      err,
		Duration: r.now().Sub(start),
	}
	res.Failure = check(sc, resp, err)
	res.Passed = res.Failure == ""
	return res
}

// check returns a description of the first unmet expectation, or "".
func check(sc Scenario, resp model.Response, err error) string {
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}

	switch sc.Expect {
	case ExpectAnswer:
		if resp.IsRefusal {
			return fmt.Sprintf("expected an answer, got refusal %q (%s)", resp.Text, resp.RefusalReason)
		}
		lower := strings.ToLower(resp.Text)
		for _, want := range sc.Contains {
			if !strings.Contains(lower, strings.ToLower(want)) {
				return fmt.Sprintf("answer does not mention %q: %q", want, resp.Text)
			}
		}
	case ExpectRefusal:
		if !resp.IsRefusal {
			return fmt.Sprintf("expected a refusal, got answer %q", resp.Text)
		}
		if !sc.Phrase.Allows(resp.Text) {
			return fmt.Sprintf("refusal %q is not phrase %v", resp.Text, []int(sc.Phrase))
		}
		if sc.Reason != model.ReasonNone && resp.RefusalReason != sc.Reason {
			return fmt.Sprintf("expected reason %s, got %s", sc.Reason, resp.RefusalReason)
		}
	}
	return ""
}

func (r *Runner) newProgressBar(total int, name string) *progressbar.ProgressBar {
	if r.progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		r.progressOptions(name)...,
	)
}

func (r *Runner) progressOptions(name string) []progressbar.Option {
	return []progressbar.Option{
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Running %s suite...[reset]", name)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(r.progress); err != nil {
				r.logger.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	}
}
