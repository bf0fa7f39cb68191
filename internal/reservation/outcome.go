package reservation

// ConfirmOutcome reports what Confirm did.
type ConfirmOutcome int

const (
	// Confirmed means this call moved the booking to paid.
	Confirmed ConfirmOutcome = iota + 1
	// AlreadyConfirmed means an earlier call did.
	AlreadyConfirmed
	// AlreadyReleased means the hold expired first; nothing was changed.
	AlreadyReleased
)

func (o ConfirmOutcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case AlreadyConfirmed:
		return "already_confirmed"
	case AlreadyReleased:
		return "already_released"
	}
	return "unknown"
}

// ReleaseOutcome reports what a release did.
type ReleaseOutcome int

const (
	// Released means seats were freed and the booking deleted.
	Released ReleaseOutcome = iota + 1
	// ReleaseSkippedPaid means the booking was paid and was left alone.
	ReleaseSkippedPaid
	// ReleaseSkippedGone means the booking no longer exists.
	ReleaseSkippedGone
	// ReleaseNotDue means the hold has not expired yet.
	ReleaseNotDue
)

func (o ReleaseOutcome) String() string {
	switch o {
	case Released:
		return "released"
	case ReleaseSkippedPaid:
		return "skipped_paid"
	case ReleaseSkippedGone:
		return "skipped_gone"
	case ReleaseNotDue:
		return "not_due"
	}
	return "unknown"
}
