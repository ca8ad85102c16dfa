package workers

import (
	"context"
	"log"
	"time"

	"greenHabitAPI/services"
)

// StartStreakAudit starts the periodic consistency audit: every interval it
// recomputes each stored aggregate from the completion ledger and heals any
// drift. The goroutine exits when ctx is cancelled.
func StartStreakAudit(ctx context.Context, streakService *services.StreakService, interval time.Duration) {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runAudit(ctx, streakService)
			}
		}
	}()
}

func runAudit(ctx context.Context, streakService *services.StreakService) {
	auditCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	log.Println("Starting streak consistency audit...")

	healed, err := streakService.AuditAll(auditCtx)
	if err != nil {
		log.Printf("Streak audit failed: %v", err)
		return
	}
	if healed > 0 {
		log.Printf("Streak audit healed %d aggregates", healed)
	}
}
