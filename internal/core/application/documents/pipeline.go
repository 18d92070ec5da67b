// Package documents runs the post-booking document steps for a shipment.
package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"
	"freight/internal/pkg/metrics"
)

// StepOutcome is the result of one document step. Err is nil on success and a
// document_step_failed LifecycleError otherwise.
type StepOutcome struct {
	Step shipment.DocumentStep
	Err  error
}

func (o StepOutcome) Succeeded() bool {
	return o.Err == nil
}

// Report collects the outcomes of one pipeline run in step order.
type Report struct {
	Outcomes []StepOutcome
}

// State rolls the outcomes up. A run with no steps is complete.
func (r Report) State() shipment.DocumentsState {
	ok := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			ok++
		}
	}
	switch {
	case ok == len(r.Outcomes):
		return shipment.DocumentsComplete
	case ok == 0:
		return shipment.DocumentsFailed
	default:
		return shipment.DocumentsPartial
	}
}

// Summary is a one-line status message for the user.
func (r Report) Summary() string {
	switch r.State() {
	case shipment.DocumentsComplete:
		return "Shipment booked. All documents generated."
	default:
		var failed []string
		for _, o := range r.Outcomes {
			if !o.Succeeded() {
				failed = append(failed, o.Step.Label())
			}
		}
		return fmt.Sprintf("Shipment booked. Some documents could not be generated: %s.", strings.Join(failed, ", "))
	}
}

// Err joins the step failures, or returns nil when every step succeeded.
func (r Report) Err() error {
	var out []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return errors.Join(out...)
}

// Pipeline generates the BOL and then the carrier confirmation. A failed step
// never stops the next one, and nothing it does can fail the booking itself.
type Pipeline struct {
	generator ports.DocumentGenerator
	logger    *slog.Logger
	now       func() time.Time
}

func NewPipeline(generator ports.DocumentGenerator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		generator: generator,
		logger:    logger.With("component", "DocumentPipeline"),
		now:       time.Now,
	}
}

// Run executes every step.
func (p *Pipeline) Run(ctx context.Context, req ports.DocumentRequest) Report {
	return p.RunPending(ctx, req, shipment.DocumentSteps())
}

// RunPending executes only the given steps, keeping the fixed step order.
func (p *Pipeline) RunPending(ctx context.Context, req ports.DocumentRequest, pending []shipment.DocumentStep) Report {
	var report Report
	for _, step := range shipment.DocumentSteps() {
		if !containsStep(pending, step) {
			continue
		}
		started := p.now()
		err := p.runStep(ctx, step, req)
		metrics.RecordDocumentStep(string(step), err == nil, p.now().Sub(started))
		if err != nil {
			p.logger.Warn("document step failed",
				"step", step, "shipment_id", req.ShipmentID.String(), "error", err)
		} else {
			p.logger.Info("document step succeeded", "step", step, "shipment_id", req.ShipmentID.String())
		}
		report.Outcomes = append(report.Outcomes, StepOutcome{Step: step, Err: err})
	}
	return report
}

func (p *Pipeline) runStep(ctx context.Context, step shipment.DocumentStep, req ports.DocumentRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.NewDocumentStepFailedError(step.Label(), fmt.Errorf("panic: %v", r))
		}
	}()

	switch step {
	case shipment.StepBOL:
		err = p.generator.GenerateBOL(ctx, req)
	case shipment.StepCarrierConfirmation:
		err = p.generator.GenerateCarrierConfirmation(ctx, req)
	default:
		err = fmt.Errorf("unknown document step %q", step)
	}
	if err != nil {
		return errs.NewDocumentStepFailedError(step.Label(), err)
	}
	return nil
}

func containsStep(steps []shipment.DocumentStep, step shipment.DocumentStep) bool {
	for _, s := range steps {
		if s == step {
			return true
		}
	}
	return false
}
