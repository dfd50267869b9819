package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/0xfdc/foodgram/config"
	"github.com/0xfdc/foodgram/internal/database"
	"github.com/0xfdc/foodgram/internal/models"
)

// Loads tag and ingredient reference data from CSV files. Rows that already
// exist are skipped, so re-running is safe.
func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.csv", "CSV file with name,measurement_unit rows")
	tagsPath := flag.String("tags", "data/tags.csv", "CSV file with name,slug rows")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if *tagsPath != "" {
		n, err := seedTags(db, *tagsPath)
		if err != nil {
			log.Fatalf("failed to seed tags: %v", err)
		}
		fmt.Printf("Seeded %d tags\n", n)
	}
	if *ingredientsPath != "" {
		n, err := seedIngredients(db, *ingredientsPath)
		if err != nil {
			log.Fatalf("failed to seed ingredients: %v", err)
		}
		fmt.Printf("Seeded %d ingredients\n", n)
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2
	return reader.ReadAll()
}

func seedTags(db *gorm.DB, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}
	tags := make([]models.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, models.Tag{Name: row[0], Slug: row[1]})
	}
	if len(tags) == 0 {
		return 0, nil
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(tags, 500)
	return int(result.RowsAffected), result.Error
}

func seedIngredients(db *gorm.DB, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}
	ingredients := make([]models.Ingredient, 0, len(rows))
	for _, row := range rows {
		ingredients = append(ingredients, models.Ingredient{Name: row[0], MeasurementUnit: row[1]})
	}
	if len(ingredients) == 0 {
		return 0, nil
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(ingredients, 500)
	return int(result.RowsAffected), result.Error
}
