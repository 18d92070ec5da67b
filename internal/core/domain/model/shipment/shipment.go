package shipment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/pkg/errs"
)

var ErrShipmentIsNotConstructed = errors.New("Shipment must be created via NewDraft or RestoreShipment")

// Shipment is the aggregate root for one shipment record, draft or booked.
//
// Invariants:
//   - companyID, createdBy and creationMethod never change after creation
//   - shipmentID is assigned at most once
//   - a booked shipment has a shipmentID and at least one package
//   - draftVersion only grows
type Shipment struct {
	key            kernel.UUID
	shipmentID     kernel.ShipmentID
	companyID      string
	createdBy      string
	creationMethod CreationMethod
	status         Status
	content        Content
	totals         Totals
	draftVersion   int
	documents      Documents
	createdAt      time.Time
	updatedAt      time.Time
	bookedAt       *time.Time

	isConstructed bool
}

// NewDraft starts an unsaved draft owned by companyID and userID.
func NewDraft(companyID, userID string, method CreationMethod, content Content) (*Shipment, error) {
	s := &Shipment{
		status:        Draft,
		content:       content.Clone(),
		isConstructed: true,
	}
	if err := errors.Join(
		s.setCompanyID(companyID),
		s.setCreatedBy(userID),
		s.setCreationMethod(method),
	); err != nil {
		return nil, err
	}
	s.totals = ComputeTotals(s.content)
	return s, nil
}

// Snapshot is the flat form of a Shipment used by stores.
type Snapshot struct {
	Key            kernel.UUID
	ShipmentID     kernel.ShipmentID
	CompanyID      string
	CreatedBy      string
	CreationMethod CreationMethod
	Status         Status
	Content        Content
	Totals         Totals
	DraftVersion   int
	Documents      Documents
	CreatedAt      time.Time
	UpdatedAt      time.Time
	BookedAt       *time.Time
}

// RestoreShipment rebuilds a shipment loaded from a store.
func RestoreShipment(snap Snapshot) (*Shipment, error) {
	s := &Shipment{
		key:           snap.Key,
		shipmentID:    snap.ShipmentID,
		status:        snap.Status,
		content:       snap.Content,
		totals:        snap.Totals,
		documents:     snap.Documents,
		createdAt:     snap.CreatedAt,
		updatedAt:     snap.UpdatedAt,
		bookedAt:      snap.BookedAt,
		isConstructed: true,
	}
	if err := errors.Join(
		snap.Key.Validate(),
		s.setCompanyID(snap.CompanyID),
		s.setCreatedBy(snap.CreatedBy),
		s.setCreationMethod(snap.CreationMethod),
		s.setDraftVersion(snap.DraftVersion),
		snap.Status.Validate(),
	); err != nil {
		return nil, err
	}
	if snap.Status == Booked && snap.ShipmentID.IsZero() {
		return nil, errs.NewValueIsRequiredError("shipmentID")
	}
	return s, nil
}

func (s *Shipment) Validate() error {
	if s == nil || !s.isConstructed {
		return ErrShipmentIsNotConstructed
	}
	return nil
}

func (s *Shipment) Snapshot() Snapshot {
	return Snapshot{
		Key:            s.key,
		ShipmentID:     s.shipmentID,
		CompanyID:      s.companyID,
		CreatedBy:      s.createdBy,
		CreationMethod: s.creationMethod,
		Status:         s.status,
		Content:        s.content.Clone(),
		Totals:         s.totals,
		DraftVersion:   s.draftVersion,
		Documents:      s.documents,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
		BookedAt:       s.bookedAt,
	}
}

func (s *Shipment) Key() kernel.UUID {
	return s.key
}

func (s *Shipment) ShipmentID() kernel.ShipmentID {
	return s.shipmentID
}

func (s *Shipment) CompanyID() string {
	return s.companyID
}

func (s *Shipment) CreatedBy() string {
	return s.createdBy
}

func (s *Shipment) CreationMethod() CreationMethod {
	return s.creationMethod
}

func (s *Shipment) Status() Status {
	return s.status
}

func (s *Shipment) Totals() Totals {
	return s.totals
}

func (s *Shipment) DraftVersion() int {
	return s.draftVersion
}

func (s *Shipment) Documents() Documents {
	return s.documents
}

func (s *Shipment) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Shipment) UpdatedAt() time.Time {
	return s.updatedAt
}

func (s *Shipment) BookedAt() *time.Time {
	return s.bookedAt
}

func (s *Shipment) IsPersisted() bool {
	return !s.key.IsZero()
}

func (s *Shipment) DocumentsState() DocumentsState {
	return s.documents.State()
}

// Content returns a copy; edits go through Edit.
func (s *Shipment) Content() Content {
	return s.content.Clone()
}

// LifecycleState derives the engine state from what has been persisted.
func (s *Shipment) LifecycleState() LifecycleState {
	switch {
	case s.status == Booked:
		return StateBooked
	case s.status == Error:
		return StateError
	case s.IsPersisted():
		return StateDraftPersisted
	default:
		return StateComposing
	}
}

// Edit replaces the content. Only the editor that created the shipment may
// edit it, and only while it is not booked.
func (s *Shipment) Edit(editor CreationMethod, content Content) error {
	if editor != s.creationMethod {
		return errs.NewCrossEditRejectedError(s.creationMethod.String(), editor.String())
	}
	if err := s.status.ValidateEdit(); err != nil {
		return err
	}
	s.content = content.Clone()
	return nil
}

// AssignShipmentID sets the human-facing id. Re-assigning the same id is a no-op;
// a different one is refused.
func (s *Shipment) AssignShipmentID(id kernel.ShipmentID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if id.CompanyID() != s.companyID {
		return errs.NewValueIsInvalidErrorWithCause("shipmentID",
			fmt.Errorf("%s does not belong to company %s", id, s.companyID))
	}
	if !s.shipmentID.IsZero() {
		if s.shipmentID.IsEqual(id) {
			return nil
		}
		return errs.NewValueIsInvalidErrorWithCause("shipmentID",
			fmt.Errorf("already assigned %s, cannot reassign to %s", s.shipmentID, id))
	}
	s.shipmentID = id
	return nil
}

// AssignKey records the key a store assigned on first insert.
func (s *Shipment) AssignKey(key kernel.UUID) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if s.IsPersisted() && !s.key.IsEqual(key) {
		return errs.NewValueIsInvalidErrorWithCause("key", fmt.Errorf("record already stored as %s", s.key))
	}
	s.key = key
	return nil
}

// MarkDraftSaved prepares the draft for a save: totals are recomputed and the
// draft version is bumped. A shipment in Error goes back to Draft.
func (s *Shipment) MarkDraftSaved() error {
	next, err := s.status.Retry()
	if err != nil {
		return err
	}
	s.status = next
	s.totals = ComputeTotals(s.content)
	s.draftVersion++
	return nil
}

// Book moves the draft to Booked under id. Document steps start out pending.
func (s *Shipment) Book(id kernel.ShipmentID, at time.Time) error {
	if len(s.content.Packages) == 0 {
		return errs.NewValidationFailedError("at least one package is required")
	}
	next, err := s.status.Book()
	if err != nil {
		return err
	}
	if err = s.AssignShipmentID(id); err != nil {
		return err
	}
	s.status = next
	s.totals = ComputeTotals(s.content)
	bookedAt := at.UTC()
	s.bookedAt = &bookedAt
	s.documents = pendingDocuments()
	return nil
}

// Fail records that a booking attempt broke down after validation.
func (s *Shipment) Fail() error {
	next, err := s.status.Fail()
	if err != nil {
		return err
	}
	s.status = next
	return nil
}

// Reopen returns a shipment in Error to Draft so it can be booked again.
func (s *Shipment) Reopen() error {
	next, err := s.status.Retry()
	if err != nil {
		return err
	}
	s.status = next
	return nil
}

// BeginDocumentAttempt counts one run of the document pipeline.
func (s *Shipment) BeginDocumentAttempt(at time.Time) error {
	if s.status != Booked {
		return errs.NewInvalidTransitionError(s.status.String(), "documents")
	}
	at = at.UTC()
	s.documents.Attempts++
	s.documents.LastAttemptAt = &at
	return nil
}

// RecordDocumentStep stores the outcome of one document step. A step that has
// already succeeded is never downgraded.
func (s *Shipment) RecordDocumentStep(step DocumentStep, stepErr error, at time.Time) {
	if s.documents.Step(step).Status == StepSucceeded {
		return
	}
	r := StepResult{Status: StepSucceeded, UpdatedAt: at.UTC()}
	if stepErr != nil {
		r.Status = StepFailed
		r.Error = strings.TrimSpace(stepErr.Error())
	}
	s.documents.setStep(step, r)
}

// Clone returns an independent copy of the shipment.
func (s *Shipment) Clone() *Shipment {
	c := *s
	c.content = s.content.Clone()
	if s.bookedAt != nil {
		at := *s.bookedAt
		c.bookedAt = &at
	}
	if s.documents.LastAttemptAt != nil {
		at := *s.documents.LastAttemptAt
		c.documents.LastAttemptAt = &at
	}
	return &c
}

func (s *Shipment) setCompanyID(companyID string) error {
	if strings.TrimSpace(companyID) == "" {
		return errs.NewValueIsRequiredError("companyID")
	}
	s.companyID = companyID
	return nil
}

func (s *Shipment) setCreatedBy(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errs.NewValueIsRequiredError("createdBy")
	}
	s.createdBy = userID
	return nil
}

func (s *Shipment) setCreationMethod(method CreationMethod) error {
	if err := method.Validate(); err != nil {
		return err
	}
	s.creationMethod = method
	return nil
}

func (s *Shipment) setDraftVersion(v int) error {
	if v < 0 {
		return errs.NewVersionIsInvalidErrorWithCause("draftVersion", fmt.Errorf("%d is negative", v))
	}
	s.draftVersion = v
	return nil
}
