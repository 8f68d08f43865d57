package reviews

import (
	"time"

	"doorly/internal/domain/booking"
	"doorly/internal/domain/shared/daterange"
)

// WindowDays is how many days after the stay's last day reviews stay open.
const WindowDays = 15

type WindowReason string

const (
	WindowOpen            WindowReason = "open"
	WindowNotYetOpen      WindowReason = "not_yet_open"
	WindowClosedReason    WindowReason = "closed"
	WindowNotSettled      WindowReason = "payment_not_settled"
	WindowStatus          WindowReason = "status_not_eligible"
	WindowAlreadyReviewed WindowReason = "already_reviewed"
)

// Window tells whether a booking can be reviewed at a given instant and when
// the window opens and closes.
type Window struct {
	Eligible bool
	OpensAt  time.Time
	ClosesAt time.Time
	Reason   WindowReason
}

// EvaluateWindow opens on the day after the stay ends and closes WindowDays
// after the last day. The booking must have been confirmed and paid.
func EvaluateWindow(b *booking.Booking, reviewed bool, now time.Time) Window {
	w := Window{
		OpensAt:  b.Range.DayAfterEnd(),
		ClosesAt: daterange.AddDays(b.Range.End, WindowDays),
	}
	switch {
	case b.Status != booking.StatusConfirmed && b.Status != booking.StatusCompleted:
		w.Reason = WindowStatus
	case !b.Settled():
		w.Reason = WindowNotSettled
	case reviewed:
		w.Reason = WindowAlreadyReviewed
	case now.Before(w.OpensAt):
		w.Reason = WindowNotYetOpen
	case !now.Before(w.ClosesAt):
		w.Reason = WindowClosedReason
	default:
		w.Eligible = true
		w.Reason = WindowOpen
	}
	return w
}
