package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pulseesg/backend/internal/services"
)

type serviceStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database  serviceStatus `json:"database"`
		AIService serviceStatus `json:"aiService"`
	} `json:"services"`
}

func main() {
	aiURL := flag.String("ai", "", "probe the AI service directly at this analyze URL instead of the backend")
	flag.Parse()

	if *aiURL != "" {
		os.Exit(probeAI(*aiURL))
	}

	url := "http://localhost:8080/health"
	if flag.NArg() > 0 {
		url = flag.Arg(0)
	}
	os.Exit(probeBackend(url))
}

func probeAI(url string) int {
	client, err := services.NewAIClient(services.AIClientConfig{
		URL:            url,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		MaxAttempts:    1,
	})
	if err != nil {
		fmt.Printf("❌ Invalid AI service URL: %v\n", err)
		return 1
	}

	fmt.Printf("🔍 Testing AI service: %s\n", client.URL())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.CheckHealth(ctx); err != nil {
		fmt.Printf("❌ AI service health check failed: %v\n", err)
		return 1
	}
	fmt.Printf("✅ AI service is healthy\n")
	return 0
}

func probeBackend(url string) int {
	fmt.Printf("🔍 Testing health endpoint: %s\n", url)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("❌ Error connecting to health endpoint: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("❌ Error reading response: %v\n", err)
		return 1
	}

	fmt.Printf("📊 Response Status: %s\n", resp.Status)
	fmt.Printf("📄 Response Body: %s\n", string(body))

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("❌ Health check failed with status: %d\n", resp.StatusCode)
		return 1
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fmt.Printf("❌ Error parsing JSON response: %v\n", err)
		return 1
	}

	if health.Services.Database.Status != "ok" {
		fmt.Printf("❌ Database status is not 'ok': %s\n", health.Services.Database.Status)
		if health.Services.Database.Error != "" {
			fmt.Printf("   Database error: %s\n", health.Services.Database.Error)
		}
		return 1
	}

	if health.Services.AIService.Status != "ok" {
		fmt.Printf("⚠️  AI service is %s: %s\n", health.Services.AIService.Status, health.Services.AIService.Error)
	}

	fmt.Printf("✅ Health check passed!\n")
	fmt.Printf("   Status: %s\n", health.Status)
	fmt.Printf("   Version: %s\n", health.Version)
	fmt.Printf("   Database: %s\n", health.Services.Database.Status)
	fmt.Printf("   AI service: %s\n", health.Services.AIService.Status)
	fmt.Printf("   Timestamp: %s\n", health.Timestamp)
	return 0
}
