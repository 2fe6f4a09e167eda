package main

import (
	"encoding/json"
	"log"
	"os"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/model"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 2. Extensions & Enums (Things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions and Enums...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'ai_credit_transaction_type') THEN CREATE TYPE ai_credit_transaction_type AS ENUM ('grant', 'spend', 'refund', 'adjustment'); END IF; END $$;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 3. AutoMigrate
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.User{},
		&model.EmailVerificationToken{},
		&model.PasswordResetToken{},
		&model.UserRefreshToken{},
		&model.UserProvider{},
		&model.Wallet{},
		&model.DailyFreeUsage{},
		&model.CreditTransaction{},
		&model.AiRequest{},
		&model.ToolConfig{},
		&model.CreditConfig{},
		&model.History{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Seeds
	log.Println("Step 3: Seeding tool and credit configuration...")

	if err := seed(db); err != nil {
		log.Fatalf("Error: Seeding failed: %v", err)
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}

// seed inserts defaults only where rows are missing so admin edits survive re-runs.
func seed(db *gorm.DB) error {
	tools := []model.ToolConfig{
		{ToolId: "summary", ToolName: "Summary", Description: "Condense study material into a summary", Enabled: true, MinChars: 50, MaxChars: 20000, CostMultiplier: 1},
		{ToolId: "questions", ToolName: "Practice Questions", Description: "Generate practice questions from study material", Enabled: true, MinChars: 50, MaxChars: 20000, CostMultiplier: 1},
		{ToolId: "explain", ToolName: "Explain", Description: "Explain a concept in plain language", Enabled: true, MinChars: 1, MaxChars: 5000, CostMultiplier: 1},
		{ToolId: "rewrite", ToolName: "Rewrite", Description: "Rewrite text in a chosen tone", Enabled: true, MinChars: 1, MaxChars: 10000, CostMultiplier: 1},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tools).Error; err != nil {
		return err
	}

	pricing, err := json.Marshal(credit.DefaultPricing())
	if err != nil {
		return err
	}
	bonus, err := json.Marshal(entity.BonusConfig{Enabled: false})
	if err != nil {
		return err
	}
	configs := []model.CreditConfig{
		{Key: entity.CreditConfigToolPricing, Value: datatypes.JSON(pricing)},
		{Key: entity.CreditConfigDailyFreeCredits, Value: datatypes.JSON(`10`)},
		{Key: entity.CreditConfigBonus, Value: datatypes.JSON(bonus)},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&configs).Error
}
