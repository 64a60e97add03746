// Command seed loads a demo household into the document store so a fresh
// deployment has something to show.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/hearthhq/hearth/internal/app"
	tasksdom "github.com/hearthhq/hearth/internal/app/domain/tasks"
	plannersvc "github.com/hearthhq/hearth/internal/app/services/planner"
	"github.com/hearthhq/hearth/internal/config"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "Path to env file with store credentials")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("load env (%s): %v; relying on the environment", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	slog := logger.NewDefault("seed")
	var gateway store.Gateway
	if cfg.Backend() == config.BackendRest {
		gateway, err = store.NewRest(store.RestConfig{
			URL:    cfg.Store.URL,
			APIKey: cfg.Store.APIKey,
			Log:    slog,
		})
		if err != nil {
			log.Fatalf("build store gateway: %v", err)
		}
	} else {
		log.Fatalf("seeding the %s backend is pointless; set HEARTH_STORE_BACKEND=rest", cfg.Backend())
	}

	application := app.New(app.Options{Store: gateway, Log: slog})
	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		log.Fatalf("start application: %v", err)
	}
	defer application.Stop(ctx)

	identity := application.Sessions.Current()

	if _, err := application.Tasks.Add(ctx, identity, tasksdom.ScopeShared, "Water the plants", ""); err != nil {
		log.Fatalf("seed shared task: %v", err)
	}
	if _, err := application.Tasks.Add(ctx, identity, tasksdom.ScopeShared, "Book the car in for a service", "2026-09-15"); err != nil {
		log.Fatalf("seed shared task: %v", err)
	}

	goal, err := application.Goals.AddGoal(ctx, identity, "Save for a family holiday")
	if err != nil {
		log.Fatalf("seed goal: %v", err)
	}
	for _, step := range []string{"Open a savings account", "Set up a weekly transfer", "Compare destinations"} {
		if _, err := application.Goals.AddSubTask(ctx, identity, goal.ID, step); err != nil {
			log.Fatalf("seed goal step: %v", err)
		}
	}

	for _, section := range []string{"Produce", "Pantry"} {
		if err := application.Planner.AddSection(ctx, plannersvc.ShoppingListPath, section); err != nil {
			log.Fatalf("seed shopping section: %v", err)
		}
	}
	sections, err := application.Planner.Shopping(ctx)
	if err != nil {
		log.Fatalf("read shopping list: %v", err)
	}
	for _, item := range []string{"Apples", "Bananas"} {
		if err := application.Planner.AddItem(ctx, plannersvc.ShoppingListPath, sections[0].ID, item); err != nil {
			log.Fatalf("seed shopping item: %v", err)
		}
	}

	if err := application.Meals.SetCell(ctx, identity, "monday", "dinner", "Spaghetti bolognese"); err != nil {
		log.Fatalf("seed meal plan: %v", err)
	}
	if _, err := application.Meals.AddItem(ctx, identity, "Spaghetti bolognese", "dinner"); err != nil {
		log.Fatalf("seed meal item: %v", err)
	}

	if err := application.Finance.SetIncome(ctx, identity, 2000, "monthly"); err != nil {
		log.Fatalf("seed income: %v", err)
	}
	if _, err := application.Finance.AddBill(ctx, identity, "Power", 120, "2026-09-20", "monthly"); err != nil {
		log.Fatalf("seed bill: %v", err)
	}

	if _, err := application.Messages.Send(ctx, identity, "Welcome to Hearth!"); err != nil {
		log.Fatalf("seed message: %v", err)
	}

	log.Println("demo household seeded")
}
