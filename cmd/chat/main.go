// Command chat is a terminal front end for the same agent the web UI uses.
// Handy for the course exercises when no browser is around.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evyataryagoni/timebot/internal/assistant"
	"github.com/evyataryagoni/timebot/internal/clock"
	"github.com/evyataryagoni/timebot/internal/config"
	"github.com/evyataryagoni/timebot/internal/geoip"
	"github.com/evyataryagoni/timebot/internal/imagegen"
	"github.com/evyataryagoni/timebot/internal/logger"
	"github.com/evyataryagoni/timebot/internal/tools"
)

func main() {
	appConfig := config.Load()

	// Keep the terminal clean: warnings and errors only.
	appLogger := logger.New(logger.Config{Level: "warn", Pretty: true})

	resolver := geoip.NewHTTPResolver(
		appConfig.IPLookupURL,
		appConfig.GeoLookupURL,
		appConfig.HTTPTimeout,
		nil,
		appLogger,
	)
	clockService := clock.New(resolver, appLogger)
	imageClient := imagegen.NewHTTPClient(appConfig.ImageAPIURL, appConfig.HTTPTimeout, appLogger)
	toolbox := tools.New(clockService, imageClient, nil, appLogger)

	agentAssistant, err := assistant.New(appConfig, toolbox.All(), nil, appLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize assistant: %v\n", err)
		os.Exit(1)
	}
	defer agentAssistant.Close()

	sessionID := fmt.Sprintf("terminal-%d", time.Now().Unix())

	fmt.Printf("🤖 timebot terminal chat (model: %s)\n", appConfig.ModelName)
	fmt.Println("Ask about the time anywhere, or type '/exit' to quit.")
	fmt.Println(strings.Repeat("=", 50))

	if err := chatLoop(agentAssistant, sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "chat failed: %v\n", err)
		os.Exit(1)
	}
}

// chatLoop reads user lines and runs one agent turn per line.
func chatLoop(agentAssistant *assistant.Assistant, sessionID string) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("👤 You: ")
		if !scanner.Scan() {
			break
		}

		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}
		if userInput == "/exit" {
			fmt.Println("👋 Goodbye!")
			return nil
		}

		reply, err := agentAssistant.Ask(ctx, "terminal", sessionID, userInput)
		if err != nil {
			fmt.Printf("❌ Error: %v\n", err)
			continue
		}

		if len(reply.ToolCalls) > 0 {
			fmt.Printf("🔧 Tools used: %s\n", strings.Join(reply.ToolCalls, ", "))
		}
		fmt.Printf("🤖 Assistant: %s\n\n", reply.Content)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input scanner error: %w", err)
	}
	return nil
}
