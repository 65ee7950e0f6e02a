package main

import (
	"context"
	"log"

	"github.com/jonesrussell/wod-ingestor/internal/app"
)

func runEnqueue() {
	ctx := context.Background()

	application := mustNewApp(ctx)
	defer application.Close()

	if err := application.EnqueueJobs(ctx); err != nil {
		log.Fatalf("Enqueue failed: %v", err)
	}

	log.Println("Fetch jobs enqueued")
}

// mustNewApp builds the application or exits.
func mustNewApp(ctx context.Context) *app.App {
	application, err := app.New(ctx, app.Options{
		ConfigPath: configPath(),
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	return application
}
