// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"quizhub/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.GameSession{},
		&models.GamePlayer{},
		&models.Answer{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes creates the hot-path indexes AutoMigrate does not cover.
func createIndexes() {
	db := GetDB()

	// Invite code lookup is always filtered to live sessions.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_code_status ON game_sessions(invite_code, status)")

	// Leaderboards sort players inside one session.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_game_players_session_score ON game_players(session_id, score DESC)")

	// Per-question answer counts for the room progress display.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_answers_session_question ON answers(session_id, question_id)")

	log.Println("✅ Indexes created successfully")
}
