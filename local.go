// local.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	api "github.com/merchantshadowbdx/edition-produits-beezup/api"
)

func main() {
	// Load .env files (same lookup order as before)
	if err := godotenv.Load(".env.local"); err != nil {
		fmt.Println("Info: .env.local file not found, trying .env...")
		if err := godotenv.Load(); err != nil {
			fmt.Println("Info: No .env file found. Using system environment variables.")
		} else {
			fmt.Println("Info: Loaded environment variables from .env")
		}
	} else {
		fmt.Println("Info: Loaded environment variables from .env.local")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// BEEZUP_API_KEY is optional at startup: callers may supply the token
	// per request instead. Everything else here is optional wiring.
	if os.Getenv("BEEZUP_API_KEY") == "" {
		logger.Warn("BEEZUP_API_KEY is not set; requests must carry an Ocp-Apim-Subscription-Key header")
	}
	for _, envVar := range []string{"MAILGUN_DOMAIN", "MAIL_API_KEY", "NOTIFICATION_EMAIL_TO"} {
		if os.Getenv(envVar) == "" {
			logger.Info("optional environment variable not set; notifications disabled if any are missing",
				zap.String("var", envVar))
		}
	}

	// The dispatch journal only comes up when a database is configured.
	var journal *api.Journal
	if api.JournalEnabled() {
		ctx := context.Background()
		pool, err := api.GetDBPool(ctx)
		if err != nil {
			logger.Fatal("failed to connect to journal database", zap.Error(err))
		}
		defer api.CloseDBPool()

		journal = api.NewJournal(pool, logger)
		if err := journal.Init(ctx); err != nil {
			logger.Fatal("failed to initialize journal tables", zap.Error(err))
		}
		logger.Info("dispatch journal enabled")
	} else {
		logger.Info("DATABASE_URL not set; dispatch journal disabled")
	}

	server := api.NewServer(logger, journal)

	// Register handlers
	http.HandleFunc("/api/attributes", server.AttributesHandler)
	http.HandleFunc("/api/template-export", server.TemplateExportHandler)
	http.HandleFunc("/api/template-dispatch", server.TemplateDispatchHandler)
	http.HandleFunc("/api/run-history", server.RunHistoryHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("\n--- Starting Local Development Server ---\n")
	fmt.Printf("Listening on: http://localhost:%s\n\n", port)
	fmt.Println("Available Endpoints:")
	fmt.Printf("- GET  http://localhost:%s/api/attributes?catalogId=...   (Resolved attribute schema)\n", port)
	fmt.Printf("- POST http://localhost:%s/api/template-export            (Build the editable template)\n", port)
	fmt.Printf("- POST http://localhost:%s/api/template-dispatch          (Dispatch a completed template)\n", port)
	fmt.Printf("- GET  http://localhost:%s/api/run-history                (Recent dispatch runs)\n", port)
	fmt.Println("\nCTRL+C to exit")

	logger.Info("server listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
