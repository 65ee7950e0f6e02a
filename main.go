// Package main is the entry point for the wod-ingestor service.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	// version can be set at build time via -ldflags
	version = "dev"
)

func main() {
	// Optional .env for local development; ignore when absent
	_ = godotenv.Load()

	command := "worker"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "worker":
		runWorker()
	case "ingest":
		runIngest()
	case "enqueue":
		runEnqueue()
	case "version":
		log.Printf("wod-ingestor version %s\n", version)
		os.Exit(0)
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		log.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// configPath returns the config file location, overridable via env.
func configPath() string {
	if path := os.Getenv("WOD_CONFIG"); path != "" {
		return path
	}
	return "config.yml"
}

func printUsage() {
	log.Println("WOD Ingestor - Multi-command CLI")
	log.Println()
	log.Println("Usage:")
	log.Println("  wod-ingestor [command]")
	log.Println()
	log.Println("Commands:")
	log.Println("  worker     Consume fetch jobs from the queue and ingest posts (default)")
	log.Println("  ingest     Fetch the newest posts once and run them through the pipeline")
	log.Println("  enqueue    Fan out one fetch job per page of posts, then exit")
	log.Println("  version    Print version information")
	log.Println("  help       Show this help message")
	log.Println()
	log.Println("Examples:")
	log.Println("  wod-ingestor                 # Run the queue worker (default)")
	log.Println("  wod-ingestor ingest          # One-shot ingest of the newest posts")
	log.Println("  wod-ingestor ingest 3        # One-shot ingest of page 3")
	log.Println("  wod-ingestor enqueue         # Queue a fetch job for every page")
	log.Println()
	log.Println("Environment Variables:")
	log.Println("  WOD_CONFIG               - Config file path (default: config.yml)")
	log.Println("  WORDPRESS_API_URL        - WordPress posts endpoint")
	log.Println("  WORDPRESS_USER           - WordPress basic auth user")
	log.Println("  WORDPRESS_PASS           - WordPress basic auth password")
	log.Println("  WOD_BUCKET               - Object storage bucket name")
	log.Println("  REDIS_ADDR               - Redis address (default: localhost:6379)")
	log.Println("  REDIS_PASSWORD           - Redis password (optional)")
	log.Println("  IDEMPOTENCY_KEY_SPACE    - Redis key prefix for idempotency records")
	log.Println("  APP_DEBUG                - Enable debug logging (true/false)")
}
