package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pulseesg/backend/internal/config"
	"github.com/pulseesg/backend/internal/database"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/repository"
	"github.com/pulseesg/backend/internal/services"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SeedUser is one account in the seed file.
type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// SeedCompany is one company in the seed file.
type SeedCompany struct {
	Name    string `yaml:"name"`
	Sector  string `yaml:"sector"`
	Country string `yaml:"country"`
}

// SeedData is the layout of data/seed.yaml.
type SeedData struct {
	Users     []SeedUser    `yaml:"users"`
	Companies []SeedCompany `yaml:"companies"`
}

func main() {
	path := flag.String("file", "data/seed.yaml", "seed file")
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

	log.Println("Running database migrations...")
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	data, err := loadSeed(*path)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	ctx := context.Background()
	auth := services.NewAuthService(repository.NewAnalystRepository(db), cfg.JWT.Secret, cfg.JWT.Expiration)
	companies := services.NewCompanyService(repository.NewCompanyRepository(db))

	seedUsers(ctx, auth, data.Users)
	if err := seedCompanies(ctx, companies, data.Companies); err != nil {
		log.Printf("Error seeding companies: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}

func loadSeed(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	return &data, nil
}

// parseRole maps the seed file's role names onto analyst roles, defaulting to
// ANALYST.
func parseRole(role string) models.AnalystRole {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "ADMIN":
		return models.RoleAdmin
	case "ANALYST", "":
		return models.RoleAnalyst
	default:
		log.Printf("Unknown role %s, defaulting to ANALYST", role)
		return models.RoleAnalyst
	}
}

func seedUsers(ctx context.Context, auth *services.AuthService, users []SeedUser) {
	for _, u := range users {
		role := parseRole(u.Role)
		_, err := auth.CreateAnalyst(ctx, u.Email, u.Password, role)
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			log.Printf("⚠️  User already exists: %s", u.Email)
		case err != nil:
			log.Printf("Error creating user %s: %v", u.Email, err)
		default:
			log.Printf("✅ Created user: %s (%s)", u.Email, role)
		}
	}
}

// seedCompanies creates companies whose name is not yet taken.
func seedCompanies(ctx context.Context, svc *services.CompanyService, companies []SeedCompany) error {
	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(c.Name)] = true
	}

	for _, c := range companies {
		if seen[strings.ToLower(strings.TrimSpace(c.Name))] {
			log.Printf("⚠️  Company already exists: %s", c.Name)
			continue
		}
		created, err := svc.Create(ctx, c.Name, c.Sector, c.Country)
		if err != nil {
			log.Printf("Error creating company %s: %v", c.Name, err)
			continue
		}
		seen[strings.ToLower(created.Name)] = true
		log.Printf("✅ Created company: %s", created.Name)
	}
	return nil
}
