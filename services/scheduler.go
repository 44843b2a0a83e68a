// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// LifecycleScheduler runs the server-side sweeps that used to depend on a
// client keeping the page open: match request expiry, ready-countdown
// promotion, and stale lobby cleanup.
type LifecycleScheduler struct {
	Requests *MatchRequestService
	Sessions *SessionService
}

func NewLifecycleScheduler(requests *MatchRequestService, sessions *SessionService) *LifecycleScheduler {
	return &LifecycleScheduler{Requests: requests, Sessions: sessions}
}

func (l *LifecycleScheduler) Start() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 30s: expire overdue pending match requests
	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			n, err := l.Requests.ExpireDueRequests(time.Now())
			if err != nil {
				log.Printf("[SCHEDULER] Expiry sweep error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("⏰ Expired %d match request(s)", n)
			}
		}),
	)

	// Every 15s: promote sessions whose ready countdown elapsed
	_, _ = sched.NewJob(
		gocron.DurationJob(15*time.Second),
		gocron.NewTask(func() {
			n, err := l.Sessions.PromoteReadySessions(time.Now())
			if err != nil {
				log.Printf("[SCHEDULER] Promotion sweep error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🚀 Promoted %d session(s) to active", n)
			}
		}),
	)

	// Every 10m: cancel lobbies that never got going
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			n, err := l.Sessions.CancelStaleLobbies(time.Now())
			if err != nil {
				log.Printf("[SCHEDULER] Stale lobby sweep error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🧹 Cancelled %d stale lobby(ies)", n)
			}
		}),
	)
}
