package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"greenHabitAPI/internal/streak"
	"greenHabitAPI/middleware"
	"greenHabitAPI/services"
)

type StreakHandler struct {
	streakService *services.StreakService
	validate      *validator.Validate
}

func NewStreakHandler(streakService *services.StreakService) *StreakHandler {
	return &StreakHandler{
		streakService: streakService,
		validate:      validator.New(),
	}
}

// CompleteHabit records one online completion for the authenticated user.
// Duplicates come back 200 with is_duplicate set; anti-cheat rejections come
// back 422 with the reason code.
func (h *StreakHandler) CompleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req streak.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "local_date and timezone are required")
		return
	}

	result, err := h.streakService.Record(ctx, clerkID, req.LocalDate, req.Timezone, streak.SourceOnline)
	if err != nil {
		if rej, ok := streak.AsRejection(err); ok {
			respondWithJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  rej.Message,
				"reason": string(rej.Reason),
			})
			return
		}
		log.Printf("CompleteHabit Handler: Service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to record completion")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// SyncCompletions replays a batch of client-buffered offline completions.
func (h *StreakHandler) SyncCompletions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req streak.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.streakService.SyncBatch(ctx, clerkID, req.Completions)
	if err != nil {
		if errors.Is(err, streak.ErrBatchTooLarge) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("SyncCompletions Handler: Service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to sync completions")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetStreak returns the user's cached streak aggregate, read by the profile
// and rewards surfaces.
func (h *StreakHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.streakService.GetStreak(ctx, clerkID)
	if err != nil {
		log.Printf("GetStreak Handler: Service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get streak")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// RecalculateStreak rebuilds the aggregate from the full ledger.
func (h *StreakHandler) RecalculateStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.streakService.Recalculate(ctx, clerkID)
	if err != nil {
		log.Printf("RecalculateStreak Handler: Service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to recalculate streak")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// MigrateLegacy backfills the completion ledger from the user's legacy
// completed tasks. Safe to call more than once; already-migrated dates are
// skipped.
func (h *StreakHandler) MigrateLegacy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req streak.MigrateRequest
	if r.Body != nil {
		// Body is optional; an empty body keeps the default order policy.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	migrated, err := h.streakService.MigrateLegacy(ctx, clerkID, services.MigrationOptions{OrderByDate: req.OrderByDate})
	if err != nil {
		log.Printf("MigrateLegacy Handler: Service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to migrate legacy completions")
		return
	}

	respondWithJSON(w, http.StatusOK, streak.MigrateResult{Migrated: migrated})
}
