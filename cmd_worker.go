package main

import (
	"context"
	"log"
)

func runWorker() {
	log.Println("Starting WOD Ingestor worker...")

	ctx := context.Background()

	application := mustNewApp(ctx)
	defer application.Close()

	if runErr := application.RunWorker(ctx); runErr != nil {
		log.Fatalf("Worker failed: %v", runErr)
	}

	log.Println("Worker stopped")
}
