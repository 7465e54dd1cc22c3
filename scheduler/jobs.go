package scheduler

import (
	"log"
	"time"

	"eventmanager/models"
	"eventmanager/notify"
)

const (
	tokenHorizonDays = 30
	dateLayout       = "2006-01-02"
)

// TokenSweep removes session tokens older than the 30-day horizon. Logins
// happening concurrently append new, young tokens and are never affected.
func TokenSweep(users models.UserRepository) Job {
	return Job{
		Name:     "token-sweep",
		Interval: 24 * time.Hour,
		Run: func(now time.Time) error {
			cutoff := now.AddDate(0, 0, -tokenHorizonDays)
			n, err := users.SweepTokens(cutoff)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Printf("scheduler: token-sweep: expired tokens removed for %d users", n)
			}
			return nil
		},
	}
}

// StatusAdvance flips pending events whose date has arrived (or passed, if a
// run was missed) to completed, closing them to further reservations.
func StatusAdvance(events models.EventRepository) Job {
	return Job{
		Name:     "status-advance",
		Interval: time.Hour,
		Run: func(now time.Time) error {
			n, err := events.CompleteDue(now.Format(dateLayout))
			if err != nil {
				return err
			}
			if n > 0 {
				log.Printf("scheduler: status-advance: %d events completed", n)
			}
			return nil
		},
	}
}

// ReminderDispatch mails every attendee of each pending event happening
// tomorrow. Sends are independent: one failed delivery is logged and the
// rest still go out. An event that stays pending and one day out is
// re-selected by the next run, so transient failures self-heal.
func ReminderDispatch(events models.EventRepository, sender notify.EmailSender) Job {
	return Job{
		Name:     "reminder-dispatch",
		Interval: 24 * time.Hour,
		Run: func(now time.Time) error {
			target := now.AddDate(0, 0, 1).Format(dateLayout)
			due, err := events.PendingOn(target)
			if err != nil {
				return err
			}
			for _, e := range due {
				for _, a := range e.Attendees {
					if err := sender.Send(notify.ReminderMessage(a, e.Details)); err != nil {
						log.Printf("scheduler: reminder-dispatch: send to %s for event %s: %v",
							a.Buyer.Email, e.ID, err)
					}
				}
			}
			return nil
		},
	}
}
