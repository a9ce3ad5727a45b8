package hold

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHoldExpired     = errors.New("hold deadline has passed")
	ErrInvalidPhase    = errors.New("operation not valid in current phase")
	ErrAlreadyTerminal = errors.New("hold is already terminal")
	ErrAlreadyWarned   = errors.New("warning already sent")
	ErrMissingCustomer = errors.New("customer id is required")
)

// Hold is a temporary, deadline-bound claim on a SlotKey. All mutations go
// through the phase checks below; persistence enforces the version check.
type Hold struct {
	id                   uuid.UUID
	slotKey              SlotKey
	customerID           uuid.UUID
	phase                Phase
	createdAt            time.Time
	signatureDeadline    time.Time
	signatureCompletedAt *time.Time
	paymentDeadline      *time.Time
	signatureWarnedAt    *time.Time
	paymentWarnedAt      *time.Time
	releaseReason        string
	version              int64
}

func NewHold(key SlotKey, customerID uuid.UUID, now time.Time, signatureWindow time.Duration) (*Hold, error) {
	if key.IsZero() {
		return nil, ErrInvalidSlot
	}
	if customerID == uuid.Nil {
		return nil, ErrMissingCustomer
	}

	return &Hold{
		id:                uuid.New(),
		slotKey:           key,
		customerID:        customerID,
		phase:             PhaseCreated,
		createdAt:         now,
		signatureDeadline: now.Add(signatureWindow),
		version:           1,
	}, nil
}

func ReconstructHold(
	id uuid.UUID,
	key SlotKey,
	customerID uuid.UUID,
	phase Phase,
	createdAt time.Time,
	signatureDeadline time.Time,
	signatureCompletedAt *time.Time,
	paymentDeadline *time.Time,
	signatureWarnedAt *time.Time,
	paymentWarnedAt *time.Time,
	releaseReason string,
	version int64,
) *Hold {
	return &Hold{
		id:                   id,
		slotKey:              key,
		customerID:           customerID,
		phase:                phase,
		createdAt:            createdAt,
		signatureDeadline:    signatureDeadline,
		signatureCompletedAt: signatureCompletedAt,
		paymentDeadline:      paymentDeadline,
		signatureWarnedAt:    signatureWarnedAt,
		paymentWarnedAt:      paymentWarnedAt,
		releaseReason:        releaseReason,
		version:              version,
	}
}

// RecordSignature advances the hold past the signature step and opens the
// payment window. The deadline is checked here, not left to the sweeper:
// sweep cadence is coarser than real time.
func (h *Hold) RecordSignature(now time.Time, paymentWindow time.Duration) error {
	switch h.phase {
	case PhaseCreated, PhaseAwaitingSignature:
	default:
		return ErrInvalidPhase
	}
	if now.After(h.signatureDeadline) {
		return ErrHoldExpired
	}

	completed := now
	deadline := now.Add(paymentWindow)
	h.phase = PhaseSigned
	h.signatureCompletedAt = &completed
	h.paymentDeadline = &deadline
	return nil
}

// RecordPayment moves the hold to its confirmed terminal phase. Conversion
// into a booking happens in the same transaction, by the booking writer.
func (h *Hold) RecordPayment(now time.Time) error {
	switch h.phase {
	case PhaseSigned, PhaseAwaitingDeposit:
	default:
		return ErrInvalidPhase
	}
	if h.paymentDeadline == nil || now.After(*h.paymentDeadline) {
		return ErrHoldExpired
	}

	h.phase = PhaseConfirmed
	return nil
}

// Release is valid from any non-terminal phase and idempotent on repeat:
// releasing an already released hold keeps the first reason.
func (h *Hold) Release(reason string) error {
	if h.phase == PhaseReleased {
		return nil
	}
	if h.phase.IsTerminal() {
		return ErrAlreadyTerminal
	}

	h.phase = PhaseReleased
	h.releaseReason = reason
	return nil
}

func (h *Hold) ExpireUnsigned(now time.Time) error {
	switch h.phase {
	case PhaseCreated, PhaseAwaitingSignature:
	default:
		return ErrInvalidPhase
	}
	if !now.After(h.signatureDeadline) {
		return ErrInvalidPhase
	}

	h.phase = PhaseExpiredUnsigned
	return nil
}

func (h *Hold) ExpireUnpaid(now time.Time) error {
	switch h.phase {
	case PhaseSigned, PhaseAwaitingDeposit:
	default:
		return ErrInvalidPhase
	}
	if h.paymentDeadline == nil || !now.After(*h.paymentDeadline) {
		return ErrInvalidPhase
	}

	h.phase = PhaseExpiredUnpaid
	return nil
}

func (h *Hold) MarkSignatureWarned(now time.Time) error {
	switch h.phase {
	case PhaseCreated, PhaseAwaitingSignature:
	default:
		return ErrInvalidPhase
	}
	if h.signatureWarnedAt != nil {
		return ErrAlreadyWarned
	}

	warned := now
	h.signatureWarnedAt = &warned
	return nil
}

func (h *Hold) MarkPaymentWarned(now time.Time) error {
	switch h.phase {
	case PhaseSigned, PhaseAwaitingDeposit:
	default:
		return ErrInvalidPhase
	}
	if h.paymentWarnedAt != nil {
		return ErrAlreadyWarned
	}

	warned := now
	h.paymentWarnedAt = &warned
	return nil
}

func (h *Hold) IsActive() bool {
	return h.phase.IsActive()
}

// EffectivePhase reports the phase as observed at now. A hold past one of its
// deadlines reads as expired immediately, even before the sweeper persists
// the transition; the stored phase lags by up to one sweep interval.
func (h *Hold) EffectivePhase(now time.Time) Phase {
	switch {
	case h.phase.In(AwaitingSignaturePhases()) && now.After(h.signatureDeadline):
		return PhaseExpiredUnsigned
	case h.phase.In(AwaitingPaymentPhases()) && h.paymentDeadline != nil && now.After(*h.paymentDeadline):
		return PhaseExpiredUnpaid
	default:
		return h.phase
	}
}

func (h *Hold) ID() uuid.UUID                    { return h.id }
func (h *Hold) SlotKey() SlotKey                 { return h.slotKey }
func (h *Hold) CustomerID() uuid.UUID            { return h.customerID }
func (h *Hold) Phase() Phase                     { return h.phase }
func (h *Hold) CreatedAt() time.Time             { return h.createdAt }
func (h *Hold) SignatureDeadline() time.Time     { return h.signatureDeadline }
func (h *Hold) SignatureCompletedAt() *time.Time { return h.signatureCompletedAt }
func (h *Hold) PaymentDeadline() *time.Time      { return h.paymentDeadline }
func (h *Hold) SignatureWarnedAt() *time.Time    { return h.signatureWarnedAt }
func (h *Hold) PaymentWarnedAt() *time.Time      { return h.paymentWarnedAt }
func (h *Hold) ReleaseReason() string            { return h.releaseReason }
func (h *Hold) Version() int64                   { return h.version }
