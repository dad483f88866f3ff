package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"lexbook/config"
	"lexbook/database"
	lawyerRepo "lexbook/database/repository/lawyer"
	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/models"
	"lexbook/utils"
)

// weekdayTemplate offers hourly slots from startHour to endHour on Monday to Friday.
func weekdayTemplate(startHour, endHour int) models.AvailabilityTemplate {
	tmpl := models.AvailabilityTemplate{Schedule: map[string]models.DaySchedule{}}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		var slots []models.TemplateSlot
		for h := startHour; h < endHour; h++ {
			slots = append(slots, models.TemplateSlot{
				Start: fmt.Sprintf("%02d:00", h),
				End:   fmt.Sprintf("%02d:00", h+1),
			})
		}
		tmpl.Schedule[models.WeekdayKey(wd)] = models.DaySchedule{Available: true, Slots: slots}
	}
	tmpl.Schedule[models.WeekdayKey(time.Saturday)] = models.DaySchedule{Available: false}
	return tmpl
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if cfg.DatabaseDriver != config.DriverMongo {
		log.Fatalf("seed: only the mongo driver can be seeded, got %q", cfg.DatabaseDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.DatabaseName)
	if err := schedulerRepo.NewMongoSchedulerRepo(db).EnsureIndexes(ctx); err != nil {
		log.Fatalf("seed: %v", err)
	}
	repo := lawyerRepo.NewMongoLawyerRepo(db)

	lawyers := []models.Lawyer{
		{ID: "lawyer-1", Name: "Amina Ndiaye", Email: "amina@example.com", HourlyRate: 120, Currency: "XAF", Availability: weekdayTemplate(9, 12)},
		{ID: "lawyer-2", Name: "Jean Fotso", Email: "jean@example.com", HourlyRate: 90, Currency: "XAF", Availability: weekdayTemplate(13, 17)},
		{ID: "lawyer-3", Name: "Grace Mbah", Email: "grace@example.com", HourlyRate: 150, Currency: "XAF", Availability: weekdayTemplate(8, 18)},
	}
	for i := range lawyers {
		lawyers[i].Verified = true
		lawyers[i].Active = true
		if err := repo.Upsert(ctx, &lawyers[i]); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("Seeded lawyer %s (%s)", lawyers[i].ID, lawyers[i].Name)
	}

	if cfg.JWTSecret == "" {
		log.Println("JWT_SECRET is empty, skipping demo tokens")
		return
	}
	verifier, err := utils.NewTokenVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	for _, subject := range []string{"client-1", "lawyer-1"} {
		token, err := verifier.GenerateToken(subject, subject+"@example.com", 24*time.Hour)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		fmt.Printf("%s: %s\n", subject, token)
	}
}
