package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/forkful/backend/config"
	"github.com/forkful/backend/internal/database"
	"github.com/forkful/backend/internal/models"
)

// Loads tag and ingredient fixtures. Existing rows are left untouched, so
// the command is safe to re-run.
func main() {
	tagsPath := flag.String("tags", "data/tags.json", "Path to the tags fixture")
	ingredientsPath := flag.String("ingredients", "data/ingredients.json", "Path to the ingredients fixture")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var tags []models.Tag
	if err := loadFixture(*tagsPath, &tags); err != nil {
		log.Fatalf("Failed to load tags fixture: %v", err)
	}
	for i := range tags {
		if err := db.FirstOrCreate(&tags[i], models.Tag{Slug: tags[i].Slug}).Error; err != nil {
			log.Fatalf("Failed to seed tag %q: %v", tags[i].Slug, err)
		}
	}
	log.Printf("Seeded %d tags", len(tags))

	var ingredients []models.Ingredient
	if err := loadFixture(*ingredientsPath, &ingredients); err != nil {
		log.Fatalf("Failed to load ingredients fixture: %v", err)
	}
	for i := range ingredients {
		where := models.Ingredient{
			Name:            ingredients[i].Name,
			MeasurementUnit: ingredients[i].MeasurementUnit,
		}
		if err := db.FirstOrCreate(&ingredients[i], where).Error; err != nil {
			log.Fatalf("Failed to seed ingredient %q: %v", ingredients[i].Name, err)
		}
	}
	log.Printf("Seeded %d ingredients", len(ingredients))
}

func loadFixture(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
