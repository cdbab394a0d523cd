// Command smoke drives a running API end to end: it registers a throwaway
// user, starts an asynchronous generation and polls it to completion.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/deckforge/api/internal/handlers"
	"github.com/deckforge/api/internal/models"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "API base address")
	file := flag.String("file", "", "content file (stdin when empty)")
	multi := flag.Bool("multi", true, "run the multi-phase pipeline")
	brandURL := flag.String("brand", "", "website to extract brand assets from")
	wait := flag.Duration("wait", 5*time.Minute, "maximum time to wait for the job")
	flag.Parse()

	content, err := readContent(*file)
	if err != nil {
		log.Fatalf("Failed to read content: %v", err)
	}

	client := resty.New().
		SetBaseURL(*addr+"/api/v1").
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")

	// 1. Register
	email := fmt.Sprintf("smoke-%s@example.com", uuid.NewString())
	var auth handlers.AuthResponse
	resp, err := client.R().
		SetBody(handlers.RegisterRequest{Email: email, Name: "Smoke Test", Password: "smoke-test-password"}).
		SetResult(&auth).
		Post("/auth/register")
	if err != nil {
		log.Fatalf("Register request failed: %v", err)
	}
	if resp.StatusCode() != 201 {
		log.Fatalf("Expected 201 Created, got %d. Body: %s", resp.StatusCode(), resp.String())
	}
	client.SetAuthToken(auth.Token)
	log.Printf("Registered %s", email)

	// Optional per-user key; the server key is used otherwise
	if key := os.Getenv("SMOKE_TEXT_API_KEY"); key != "" {
		resp, err = client.R().
			SetBody(map[string]string{"text_api_key": key}).
			Put("/settings")
		if err != nil {
			log.Fatalf("Settings request failed: %v", err)
		}
		if resp.StatusCode() != 200 {
			log.Fatalf("Failed to store settings: %d %s", resp.StatusCode(), resp.String())
		}
	}

	// 2. Start generation
	var started handlers.StartGenerationResponse
	resp, err = client.R().
		SetBody(models.GenerationRequest{Content: content, BrandURL: *brandURL, MultiPhase: *multi}).
		SetResult(&started).
		Post("/generations")
	if err != nil {
		log.Fatalf("Start request failed: %v", err)
	}
	if resp.StatusCode() != 202 {
		log.Fatalf("Expected 202 Accepted, got %d. Body: %s", resp.StatusCode(), resp.String())
	}
	log.Printf("Generation started. Job: %s Runner: %s", started.JobID, started.Runner)

	// 3. Poll for completion
	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		var job models.GenerationJob
		resp, err = client.R().SetResult(&job).Get("/generations/" + started.JobID.String())
		if err == nil && resp.StatusCode() == 200 {
			log.Printf("Status: %s, Stage: %s, Progress: %.0f%%", job.Status, job.Stage, job.Progress*100)

			switch job.Status {
			case models.JobStatusCompleted:
				printDeck(client, job.DeckID)
				return
			case models.JobStatusFailed, models.JobStatusCancelled:
				log.Fatalf("Generation %s: %s", job.Status, job.Error)
			}
		}
		time.Sleep(2 * time.Second)
	}

	log.Fatal("Timeout waiting for generation completion")
}

func printDeck(client *resty.Client, deckID *uuid.UUID) {
	if deckID == nil {
		log.Fatal("Job completed without a deck")
	}
	resp, err := client.R().Get("/decks/" + deckID.String())
	if err != nil {
		log.Fatalf("Deck request failed: %v", err)
	}
	if resp.StatusCode() != 200 {
		log.Fatalf("Failed to load deck: %d %s", resp.StatusCode(), resp.String())
	}
	fmt.Println(resp.String())
	log.Println("SUCCESS: Deck generated!")
}

func readContent(path string) (string, error) {
	if path == "" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
