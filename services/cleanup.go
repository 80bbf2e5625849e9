package services

import (
	"log"
	"time"

	"quizhub/models"

	"gorm.io/gorm"
)

// CleanupService handles background cleanup tasks
type CleanupService struct {
	db   *gorm.DB
	stop chan struct{}
}

func NewCleanupService(db *gorm.DB) *CleanupService {
	return &CleanupService{db: db, stop: make(chan struct{})}
}

// Start runs the cleanup loop until Stop is called.
func (s *CleanupService) Start() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.CleanupStaleSessions(); err != nil {
					log.Printf("Error cleaning up stale sessions: %v", err)
				}
				if err := s.CleanupOldGuests(); err != nil {
					log.Printf("Error cleaning up guest accounts: %v", err)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop stops the cleanup worker.
func (s *CleanupService) Stop() {
	close(s.stop)
}

// CleanupStaleSessions closes lobbies and games abandoned for over a day.
// Marking them FINISHED frees their invite codes for reuse.
func (s *CleanupService) CleanupStaleSessions() error {
	cutoff := time.Now().Add(-24 * time.Hour)
	now := time.Now()

	res := s.db.Model(&models.GameSession{}).
		Where("status <> ? AND updated_at < ?", models.StatusFinished, cutoff).
		Updates(map[string]interface{}{
			"status":      models.StatusFinished,
			"finished_at": now,
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 {
		log.Printf("✅ Closed %d stale game sessions", res.RowsAffected)
	}
	return nil
}

// CleanupOldGuests deletes guest accounts that never played a game and have
// been idle for a week.
func (s *CleanupService) CleanupOldGuests() error {
	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	res := s.db.
		Where("is_guest = ? AND updated_at < ? AND id NOT IN (SELECT DISTINCT user_id FROM game_players)", true, cutoff).
		Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 {
		log.Printf("✅ Cleaned up %d idle guest accounts", res.RowsAffected)
	}
	return nil
}
