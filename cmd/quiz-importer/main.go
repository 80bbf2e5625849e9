// Imports quizzes from a JSON file into the game database.
//
// Usage: quiz-importer [path/to/quizzes.json]
//
// The file holds an array of quizzes in the same shape the authoring API
// accepts, so every import goes through the same validation as a live
// request.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"quizhub/models"
	"quizhub/services"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type importFile struct {
	Quizzes []services.CreateQuizInput `json:"quizzes"`
}

func main() {
	jsonPath := "./data/quizzes.json"
	if len(os.Args) > 1 {
		jsonPath = os.Args[1]
	}

	db := openDB()

	if err := db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		log.Fatal("Failed to read JSON file:", err)
	}

	var file importFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Fatal("Failed to parse JSON:", err)
	}

	fmt.Printf("Found %d quizzes\n\n", len(file.Quizzes))

	importer := importUser(db)
	content := services.NewContentService(db)

	imported := 0
	for _, input := range file.Quizzes {
		quiz, err := content.CreateQuiz(importer, input)
		if err != nil {
			log.Printf("Skipping %q: %v\n", input.Title, err)
			continue
		}
		fmt.Printf("Imported: %s (%d questions)\n", quiz.Title, len(input.Questions))
		imported++
	}

	fmt.Printf("\n✓ Imported %d of %d quizzes\n", imported, len(file.Quizzes))

	var count int64
	db.Model(&models.Quiz{}).Count(&count)
	fmt.Printf("✓ Total quizzes in database: %d\n", count)
}

// openDB connects to DATABASE_URL when set, otherwise a local sqlite file.
func openDB() *gorm.DB {
	var dialector gorm.Dialector
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open("./data/quizhub.db")
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	return db
}

// importUser finds or creates the account that owns imported quizzes.
func importUser(db *gorm.DB) models.Identity {
	var user models.User
	err := db.Where("username = ?", "importer").First(&user).Error
	if err != nil {
		user = models.User{
			Username:    "importer",
			Password:    "",
			DisplayName: "Importer",
			Role:        models.RoleAdmin,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatal("Failed to create importer account:", err)
		}
	}

	return models.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
}
