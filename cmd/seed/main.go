package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"arogya-swarm/backend/internal/config"
	"arogya-swarm/backend/internal/logging"
	"arogya-swarm/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type staffRow struct {
	Name, Role, Specialization, Department, Shift, Status string
	Hours, Fatigue                                        int
}

type stockRow struct {
	Item, Category     string
	Current, Threshold int
	Unit, Supplier     string
	UnitCost           float64
}

var staff = []staffRow{
	{"Dr. Priya Sharma", "doctor", "Pulmonology", "Respiratory", "morning", "available", 38, 35},
	{"Dr. Arjun Mehta", "doctor", "Emergency Medicine", "Emergency", "morning", "available", 44, 52},
	{"Dr. Kavita Rao", "doctor", "Pediatrics", "Pediatrics", "evening", "available", 30, 28},
	{"Dr. Sanjay Iyer", "doctor", "Trauma Surgery", "Surgery", "night", "on_leave", 0, 10},
	{"Nurse Anjali Desai", "nurse", "Critical Care", "ICU", "morning", "available", 46, 85},
	{"Nurse Rohan Patil", "nurse", "Emergency", "Emergency", "morning", "available", 40, 55},
	{"Nurse Meera Nair", "nurse", "General", "General Ward", "evening", "available", 32, 30},
	{"Nurse Farhan Qureshi", "nurse", "Pediatrics", "Pediatrics", "evening", "available", 36, 42},
	{"Nurse Sunita Kulkarni", "nurse", "General", "General Ward", "night", "available", 28, 25},
	{"Nurse Vikram Joshi", "nurse", "Respiratory", "Respiratory", "night", "busy", 48, 72},
	{"Tech Neha Gupta", "technician", "Radiology", "Radiology", "morning", "available", 34, 33},
	{"Tech Aakash Singh", "technician", "Laboratory", "Laboratory", "evening", "available", 38, 40},
}

var stock = []stockRow{
	{"N95 Masks", "PPE", 120, 500, "pieces", "MedSupply Mumbai", 45},
	{"Oxygen Cylinders", "Respiratory", 18, 40, "cylinders", "Linde India", 2200},
	{"Nebulizer Kits", "Respiratory", 25, 30, "kits", "Philips Healthcare", 850},
	{"Salbutamol Inhalers", "Medication", 200, 150, "units", "Cipla", 120},
	{"IV Fluids (NS 500ml)", "Medication", 300, 400, "bags", "Baxter India", 65},
	{"Paracetamol 500mg", "Medication", 5000, 2000, "tablets", "Sun Pharma", 1.5},
	{"Platelet Kits", "Blood", 12, 20, "kits", "Terumo Penpol", 3500},
	{"Trauma Dressing Packs", "Surgical", 80, 60, "packs", "3M India", 240},
}

var departments = []string{"Emergency", "Respiratory", "Pediatrics", "General Ward", "ICU"}
var priorities = []string{"critical", "high", "medium", "low"}

func main() {
	configFile := flag.String("config", "", "Path to config file")
	historyDays := flag.Int("history-days", 30, "Days of arrival history to generate")
	flag.Parse()

	ctx := context.Background()
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	seeded := 0
	for _, step := range []struct {
		table string
		seed  func(context.Context, pgx.Tx) error
	}{
		{"staff", seedStaff},
		{"inventory", seedInventory},
		{"patient_queue", func(ctx context.Context, tx pgx.Tx) error { return seedQueue(ctx, tx, *historyDays) }},
	} {
		var existing int
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+step.table).Scan(&existing); err != nil {
			log.Fatalf("Failed to count %s: %v", step.table, err)
		}
		if existing > 0 {
			logger.Info("Skipping populated table", "table", step.table, "rows", existing)
			continue
		}
		if err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error { return step.seed(ctx, tx) }); err != nil {
			log.Fatalf("Failed to seed %s: %v", step.table, err)
		}
		logger.Info("Seeded table", "table", step.table)
		seeded++
	}
	logger.Info("Seeding complete!", "tables", seeded)
}

func seedStaff(ctx context.Context, tx pgx.Tx) error {
	for _, s := range staff {
		_, err := tx.Exec(ctx, `
			INSERT INTO staff (id, name, role, specialization, department, shift, status, hours_worked_week, fatigue_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), s.Name, s.Role, s.Specialization, s.Department, s.Shift, s.Status, s.Hours, s.Fatigue)
		if err != nil {
			return fmt.Errorf("insert %s: %w", s.Name, err)
		}
	}
	return nil
}

func seedInventory(ctx context.Context, tx pgx.Tx) error {
	for _, s := range stock {
		_, err := tx.Exec(ctx, `
			INSERT INTO inventory (id, item_name, category, current_stock, minimum_threshold, unit, supplier, unit_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), s.Item, s.Category, s.Current, s.Threshold, s.Unit, s.Supplier, s.UnitCost)
		if err != nil {
			return fmt.Errorf("insert %s: %w", s.Item, err)
		}
	}
	return nil
}

// seedQueue writes discharged arrivals with a weekly pattern for the
// forecaster, plus patients currently waiting.
func seedQueue(ctx context.Context, tx pgx.Tx, days int) error {
	rng := rand.New(rand.NewPCG(42, 7))
	now := time.Now().UTC()
	for d := days; d >= 1; d-- {
		day := now.AddDate(0, 0, -d).Truncate(24 * time.Hour)
		n := 40 + rng.IntN(10)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			n -= 12
		}
		for i := 0; i < n; i++ {
			arrival := day.Add(time.Duration(rng.IntN(24*60)) * time.Minute)
			if err := insertPatient(ctx, tx, arrival, rng, "discharged"); err != nil {
				return err
			}
		}
	}
	for i := 0; i < 18; i++ {
		arrival := now.Add(-time.Duration(rng.IntN(180)) * time.Minute)
		if err := insertPatient(ctx, tx, arrival, rng, "waiting"); err != nil {
			return err
		}
	}
	return nil
}

func insertPatient(ctx context.Context, tx pgx.Tx, arrival time.Time, rng *rand.Rand, status string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO patient_queue (id, patient_name, arrival_time, department, priority, estimated_wait_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(),
		fmt.Sprintf("Patient %04d", rng.IntN(10000)),
		arrival,
		departments[rng.IntN(len(departments))],
		priorities[rng.IntN(len(priorities))],
		10+rng.IntN(80),
		status,
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}
