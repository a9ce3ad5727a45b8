package hold

type Phase string

const (
	PhaseCreated           Phase = "created"
	PhaseAwaitingSignature Phase = "awaiting_signature"
	PhaseSigned            Phase = "signed"
	PhaseAwaitingDeposit   Phase = "awaiting_deposit"
	PhaseConfirmed         Phase = "confirmed"
	PhaseExpiredUnsigned   Phase = "expired_unsigned"
	PhaseExpiredUnpaid     Phase = "expired_unpaid"
	PhaseReleased          Phase = "released"
)

func (p Phase) String() string {
	return string(p)
}

func (p Phase) IsValid() bool {
	switch p {
	case PhaseCreated, PhaseAwaitingSignature, PhaseSigned, PhaseAwaitingDeposit,
		PhaseConfirmed, PhaseExpiredUnsigned, PhaseExpiredUnpaid, PhaseReleased:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the phase admits no further transitions.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseConfirmed, PhaseExpiredUnsigned, PhaseExpiredUnpaid, PhaseReleased:
		return true
	default:
		return false
	}
}

// IsActive reports whether the phase still occupies its slot key.
func (p Phase) IsActive() bool {
	return !p.IsTerminal()
}

// AwaitingSignaturePhases and AwaitingPaymentPhases are the phase sets bound
// by the two deadline kinds. The sweeper scans them; reads report them as
// expired once the deadline has passed.
func AwaitingSignaturePhases() []Phase {
	return []Phase{PhaseCreated, PhaseAwaitingSignature}
}

func AwaitingPaymentPhases() []Phase {
	return []Phase{PhaseSigned, PhaseAwaitingDeposit}
}

func (p Phase) In(set []Phase) bool {
	for _, s := range set {
		if p == s {
			return true
		}
	}
	return false
}
