package main

import (
	"context"
	"log"
	"os"
	"strconv"
)

func runIngest() {
	// Optional page argument; the newest posts live on page 1
	page := 1
	if len(os.Args) > 2 {
		parsed, err := strconv.Atoi(os.Args[2])
		if err != nil || parsed < 1 {
			log.Fatalf("Invalid page %q: expected a positive integer", os.Args[2])
		}
		page = parsed
	}

	ctx := context.Background()

	application := mustNewApp(ctx)
	defer application.Close()

	if err := application.IngestOnce(ctx, page); err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}

	log.Println("Ingest complete")
}
