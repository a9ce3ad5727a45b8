package negotiation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
)

type Response string

const (
	ResponsePending  Response = "pending"
	ResponseAccepted Response = "accepted"
	ResponseRejected Response = "rejected"
	ResponseExpired  Response = "expired"
)

var (
	ErrOfferClosed  = errors.New("offer already answered")
	ErrOfferExpired = errors.New("offer expired")
)

// Offer is one proposed alternative slot for a customer whose requested
// slot was taken. Each offer expires on its own clock, independent of any
// hold deadline.
type Offer struct {
	id           uuid.UUID
	customerID   uuid.UUID
	requestedKey hold.SlotKey
	proposedKey  hold.SlotKey
	rank         int
	expiresAt    time.Time
	response     Response
	createdAt    time.Time
	respondedAt  *time.Time
}

func NewOffer(customerID uuid.UUID, requested, proposed hold.SlotKey, rank int, now time.Time, ttl time.Duration) *Offer {
	return &Offer{
		id:           uuid.New(),
		customerID:   customerID,
		requestedKey: requested,
		proposedKey:  proposed,
		rank:         rank,
		expiresAt:    now.Add(ttl),
		response:     ResponsePending,
		createdAt:    now,
	}
}

func ReconstructOffer(
	id, customerID uuid.UUID,
	requested, proposed hold.SlotKey,
	rank int,
	expiresAt time.Time,
	response Response,
	createdAt time.Time,
	respondedAt *time.Time,
) *Offer {
	return &Offer{
		id:           id,
		customerID:   customerID,
		requestedKey: requested,
		proposedKey:  proposed,
		rank:         rank,
		expiresAt:    expiresAt,
		response:     response,
		createdAt:    createdAt,
		respondedAt:  respondedAt,
	}
}

func (o *Offer) Accept(now time.Time) error { return o.respond(ResponseAccepted, now) }
func (o *Offer) Reject(now time.Time) error { return o.respond(ResponseRejected, now) }

// Expire closes an offer past its TTL. Lazy: evaluated at read/response
// time rather than by a dedicated sweep.
func (o *Offer) Expire(now time.Time) error {
	if o.response != ResponsePending {
		return ErrOfferClosed
	}
	if now.Before(o.expiresAt) {
		return ErrOfferExpired
	}
	responded := now
	o.response = ResponseExpired
	o.respondedAt = &responded
	return nil
}

func (o *Offer) respond(r Response, now time.Time) error {
	if o.response != ResponsePending {
		return ErrOfferClosed
	}
	if now.After(o.expiresAt) {
		return ErrOfferExpired
	}
	responded := now
	o.response = r
	o.respondedAt = &responded
	return nil
}

func (o *Offer) IsOpen(now time.Time) bool {
	return o.response == ResponsePending && now.Before(o.expiresAt)
}

func (o *Offer) ID() uuid.UUID              { return o.id }
func (o *Offer) CustomerID() uuid.UUID      { return o.customerID }
func (o *Offer) RequestedKey() hold.SlotKey { return o.requestedKey }
func (o *Offer) ProposedKey() hold.SlotKey  { return o.proposedKey }
func (o *Offer) Rank() int                  { return o.rank }
func (o *Offer) ExpiresAt() time.Time       { return o.expiresAt }
func (o *Offer) Response() Response         { return o.response }
func (o *Offer) CreatedAt() time.Time       { return o.createdAt }
func (o *Offer) RespondedAt() *time.Time    { return o.respondedAt }
