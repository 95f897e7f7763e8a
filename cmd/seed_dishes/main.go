package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iappwebdev/mahl-zeit-planer/config"
	"github.com/iappwebdev/mahl-zeit-planer/internal/database"
	"github.com/iappwebdev/mahl-zeit-planer/internal/logger"
	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/service"
)

func main() {
	scopeFlag := flag.String("scope", "", "Scope (household) id to seed; a new one is created when empty")
	favorites := flag.Int("favorites", 0, "Mark the first n dishes of every category as favorites")
	printToken := flag.Bool("token", false, "Print a bearer token for the scope")
	flag.Parse()

	if err := run(*scopeFlag, *favorites, *printToken); err != nil {
		fmt.Fprintf(os.Stderr, "seed_dishes: %v\n", err)
		os.Exit(1)
	}
}

func run(scopeFlag string, favorites int, printToken bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	scopeID := uuid.New()
	if scopeFlag != "" {
		if scopeID, err = uuid.Parse(scopeFlag); err != nil {
			return fmt.Errorf("invalid scope id: %w", err)
		}
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, log); err != nil {
		return err
	}

	ctx := context.Background()
	dishes := service.NewDishService(db)
	perCategory := map[model.Category]int{}
	for _, seed := range germanDishes {
		dish := &model.Dish{
			ScopeID:    scopeID,
			Name:       seed.name,
			Category:   seed.category,
			IsFavorite: perCategory[seed.category] < favorites,
		}
		if _, err := dishes.Create(ctx, dish); err != nil {
			return err
		}
		perCategory[seed.category]++
	}

	log.Info("seeded dishes",
		zap.String("scope_id", scopeID.String()),
		zap.Int("fish", perCategory[model.CategoryFish]),
		zap.Int("meat", perCategory[model.CategoryMeat]),
		zap.Int("vegetarian", perCategory[model.CategoryVegetarian]),
		zap.Int("total", len(germanDishes)))

	if printToken {
		token, err := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL).GenerateToken(uuid.New(), scopeID)
		if err != nil {
			return err
		}
		fmt.Println(token)
	}
	return nil
}
