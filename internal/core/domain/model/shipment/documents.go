package shipment

import "time"

// DocumentStep names one post-booking document generator.
type DocumentStep string

const (
	StepBOL                 DocumentStep = "bol"
	StepCarrierConfirmation DocumentStep = "carrier_confirmation"
)

// DocumentSteps lists the steps in the order they run.
func DocumentSteps() []DocumentStep {
	return []DocumentStep{StepBOL, StepCarrierConfirmation}
}

// Label is the human-readable step name used in summaries.
func (s DocumentStep) Label() string {
	switch s {
	case StepBOL:
		return "BOL"
	case StepCarrierConfirmation:
		return "carrier confirmation"
	default:
		return string(s)
	}
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

type StepResult struct {
	Status    StepStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// DocumentsState is the queryable roll-up of all document steps.
type DocumentsState string

const (
	DocumentsNone     DocumentsState = "none"
	DocumentsPending  DocumentsState = "pending"
	DocumentsComplete DocumentsState = "complete"
	DocumentsPartial  DocumentsState = "partial"
	DocumentsFailed   DocumentsState = "failed"
)

// Documents tracks generated paperwork for a booked shipment. Drafts carry the zero value.
type Documents struct {
	BOL                 StepResult `json:"bol"`
	CarrierConfirmation StepResult `json:"carrierConfirmation"`
	Attempts            int        `json:"attempts"`
	LastAttemptAt       *time.Time `json:"lastAttemptAt,omitempty"`
}

func pendingDocuments() Documents {
	return Documents{
		BOL:                 StepResult{Status: StepPending},
		CarrierConfirmation: StepResult{Status: StepPending},
	}
}

func (d Documents) Step(step DocumentStep) StepResult {
	if step == StepCarrierConfirmation {
		return d.CarrierConfirmation
	}
	return d.BOL
}

func (d *Documents) setStep(step DocumentStep, r StepResult) {
	if step == StepCarrierConfirmation {
		d.CarrierConfirmation = r
		return
	}
	d.BOL = r
}

// Pending returns the steps that have not succeeded yet, in run order.
func (d Documents) Pending() []DocumentStep {
	if d.State() == DocumentsNone {
		return nil
	}
	var out []DocumentStep
	for _, step := range DocumentSteps() {
		if d.Step(step).Status != StepSucceeded {
			out = append(out, step)
		}
	}
	return out
}

func (d Documents) State() DocumentsState {
	bol, conf := d.BOL.Status, d.CarrierConfirmation.Status
	switch {
	case bol == "" && conf == "":
		return DocumentsNone
	case bol == StepSucceeded && conf == StepSucceeded:
		return DocumentsComplete
	case bol == StepSucceeded || conf == StepSucceeded:
		return DocumentsPartial
	case bol == StepFailed || conf == StepFailed:
		return DocumentsFailed
	default:
		return DocumentsPending
	}
}
