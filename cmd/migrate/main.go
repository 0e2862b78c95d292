package main

import (
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pulseesg/backend/internal/config"
	"github.com/pulseesg/backend/internal/database"
	"github.com/pulseesg/backend/internal/models"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

const addPayloadColumnSQL = `ALTER TABLE esg_analyses ADD COLUMN IF NOT EXISTS analysis_payload jsonb`

func main() {
	payloadOnly := flag.Bool("payload-only", false, "only provision the analysis_payload column")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	if !*payloadOnly {
		log.Println("Running database migrations...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	if err := provisionPayloadColumn(cfg.Database, db); err != nil {
		log.Fatalf("Failed to provision analysis_payload: %v", err)
	}

	log.Println("✅ Database migrations completed successfully!")
}

// provisionPayloadColumn adds the optional payload column to audit tables
// created before it existed. Postgres goes through lib/pq so the statement
// runs outside gorm's migrator.
func provisionPayloadColumn(cfg config.DatabaseConfig, db *gorm.DB) error {
	if cfg.Driver == "postgres" {
		conn, err := sql.Open("postgres", cfg.DSN())
		if err != nil {
			return eris.Wrap(err, "open lib/pq connection")
		}
		defer conn.Close()

		if _, err := conn.Exec(addPayloadColumnSQL); err != nil {
			return eris.Wrap(err, "alter esg_analyses")
		}
		log.Println("analysis_payload column present (postgres)")
		return nil
	}

	migrator := db.Migrator()
	if migrator.HasColumn(&models.ESGAnalysis{}, models.PayloadColumn) {
		log.Println("analysis_payload column already present")
		return nil
	}
	if err := migrator.AddColumn(&models.ESGAnalysis{}, "AnalysisPayload"); err != nil {
		return eris.Wrap(err, "add analysis_payload column")
	}
	log.Println("analysis_payload column added")
	return nil
}
