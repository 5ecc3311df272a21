package app

import (
	"fmt"
	"time"

	"mythos/pkg/auth"
	"mythos/pkg/storage"
	"mythos/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	FrontendURL string

	Store   store.Store
	Tokens  *auth.TokenManager
	Avatars storage.ObjectStore
}

// App is the core application service wiring storage, auth, and uploads.
type App struct {
	store       store.Store
	tokens      *auth.TokenManager
	avatars     storage.ObjectStore
	frontendURL string
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token manager required")
	}
	frontendURL := cfg.FrontendURL
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	return &App{
		store:       dataStore,
		tokens:      cfg.Tokens,
		avatars:     cfg.Avatars,
		frontendURL: frontendURL,
	}, nil
}

func now() time.Time {
	return time.Now().UTC()
}
