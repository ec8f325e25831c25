// Package assistant wires the agent framework together: model endpoint,
// LLM agent, session backend and runner. The reasoning loop itself - tool
// dispatch, step iteration, step-limit enforcement - is owned entirely by
// trpc-agent-go; this package only feeds it a user message and drains the
// resulting event stream.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-agent-go/agent"
	"trpc.group/trpc-go/trpc-agent-go/agent/llmagent"
	"trpc.group/trpc-go/trpc-agent-go/event"
	"trpc.group/trpc-go/trpc-agent-go/model"
	"trpc.group/trpc-go/trpc-agent-go/model/openai"
	"trpc.group/trpc-go/trpc-agent-go/runner"
	"trpc.group/trpc-go/trpc-agent-go/session"
	sessioninmemory "trpc.group/trpc-go/trpc-agent-go/session/inmemory"
	sessionredis "trpc.group/trpc-go/trpc-agent-go/session/redis"
	"trpc.group/trpc-go/trpc-agent-go/tool"

	"github.com/evyataryagoni/timebot/internal/config"
	"github.com/evyataryagoni/timebot/internal/logger"
	"github.com/evyataryagoni/timebot/internal/metrics"
)

const (
	appName   = "timebot"
	agentName = "timebot-assistant"

	agentDescription = "An assistant that can tell the local time anywhere in the world, " +
		"look up the caller's location from their IP address, fetch web pages, and generate images."

	agentInstruction = `You are a helpful assistant with the following tools:
1. get_local_time_from_ip: determine the user's location from their IP address and report their current local time
2. get_current_time_in_timezone: report the current time in any IANA timezone (e.g. 'America/New_York')
3. generate_image: create an image from a text prompt and return its URL
4. web_fetch: fetch and read web pages
Use a tool whenever it helps answer the question. When you have the complete answer, call final_answer with it.
If a tool fails, explain the failure to the user instead of guessing.`
)

// Reply is the outcome of one agent turn.
type Reply struct {
	Content   string   // Final answer text
	ToolCalls []string // Names of the tools invoked during the turn, in order
}

// Assistant is the single entry point the chat surfaces talk to.
type Assistant struct {
	runner  runner.Runner
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// New builds the model, agent, session backend and runner from configuration.
func New(cfg *config.Config, toolList []tool.Tool, m *metrics.Metrics, log *logger.Logger) (*Assistant, error) {
	if log == nil {
		log = logger.NewDefault()
	}

	// Model endpoint. Base URL and API key are optional: the framework falls
	// back to the provider's own environment variables when they are empty.
	var modelOpts []openai.Option
	if cfg.ModelBaseURL != "" {
		modelOpts = append(modelOpts, openai.WithBaseURL(cfg.ModelBaseURL))
	}
	if cfg.ModelAPIKey != "" {
		modelOpts = append(modelOpts, openai.WithAPIKey(cfg.ModelAPIKey))
	}
	modelInstance := openai.New(cfg.ModelName, modelOpts...)

	genConfig := model.GenerationConfig{
		MaxTokens:   intPtr(2000),
		Temperature: floatPtr(0.7),
		Stream:      false,
	}

	llmAgent := llmagent.New(
		agentName,
		llmagent.WithModel(modelInstance),
		llmagent.WithDescription(agentDescription),
		llmagent.WithInstruction(agentInstruction),
		llmagent.WithGenerationConfig(genConfig),
		llmagent.WithTools(toolList),
		llmagent.WithMaxToolIterations(cfg.MaxToolIterations),
	)

	sessionService, err := newSessionService(cfg)
	if err != nil {
		return nil, err
	}

	return &Assistant{
		runner:  runner.NewRunner(appName, llmAgent, runner.WithSessionService(sessionService)),
		metrics: m,
		logger:  log.WithComponent("Assistant"),
	}, nil
}

// newSessionService picks the conversation-history backend.
func newSessionService(cfg *config.Config) (session.Service, error) {
	switch cfg.SessionBackend {
	case "memory", "":
		return sessioninmemory.NewSessionService(), nil
	case "redis":
		return sessionredis.NewService(
			sessionredis.WithRedisClientURL(redisURL(cfg)),
		)
	default:
		return nil, fmt.Errorf("unknown session backend: %s (supported: 'memory', 'redis')", cfg.SessionBackend)
	}
}

// redisURL assembles a redis:// URL from the discrete config fields.
func redisURL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "redis",
		Host:   cfg.RedisAddr,
		Path:   "/" + strconv.Itoa(cfg.RedisDB),
	}
	if cfg.RedisPassword != "" {
		u.User = url.UserPassword("", cfg.RedisPassword)
	}
	return u.String()
}

// Ask runs one agent turn for the given user text and returns the final
// answer. The call blocks until the framework finishes the turn or ctx is
// canceled.
func (a *Assistant) Ask(ctx context.Context, userID, sessionID, text string) (*Reply, error) {
	start := time.Now()

	message := model.NewUserMessage(text)
	eventChan, err := a.runner.Run(ctx, userID, sessionID, message, agent.WithRequestID(uuid.NewString()))
	if err != nil {
		a.countRun("error")
		return nil, fmt.Errorf("failed to run agent: %w", err)
	}

	reply, err := a.drain(eventChan)

	if a.metrics != nil {
		a.metrics.AgentRunDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		a.countRun("error")
		return nil, err
	}
	a.countRun("success")

	a.logger.WithSession(sessionID).Info().
		Strs("tool_calls", reply.ToolCalls).
		Int("reply_len", len(reply.Content)).
		Msg("Agent turn completed")
	return reply, nil
}

// drain consumes the event stream of one turn and extracts the final answer.
//
// Two terminal shapes exist:
//   - the model answers directly: the last assistant message carries the text
//   - the model calls final_answer: the annotated tool response ends the turn
//     and its JSON payload carries the answer
func (a *Assistant) drain(eventChan <-chan *event.Event) (*Reply, error) {
	reply := &Reply{}
	// Tool responses only reference the call ID, so remember which ID maps
	// to which tool name as the calls stream past.
	callNames := make(map[string]string)
	var finalAnswer, lastAssistant string

	for evt := range eventChan {
		if evt.Response == nil {
			continue
		}
		if evt.Error != nil {
			return nil, fmt.Errorf("agent error (%s): %s", evt.Error.Type, evt.Error.Message)
		}
		if len(evt.Response.Choices) == 0 {
			continue
		}

		for _, choice := range evt.Response.Choices {
			a.recordChoice(choice, callNames, reply, &finalAnswer, &lastAssistant)
		}

		if evt.IsFinalResponse() {
			break
		}
	}

	// final_answer takes precedence over the model's running commentary.
	reply.Content = finalAnswer
	if reply.Content == "" {
		reply.Content = lastAssistant
	}
	if reply.Content == "" {
		return nil, fmt.Errorf("agent produced no final answer")
	}
	return reply, nil
}

// recordChoice folds one streamed choice into the reply being built.
func (a *Assistant) recordChoice(choice model.Choice, callNames map[string]string, reply *Reply, finalAnswer, lastAssistant *string) {
	msg := choice.Message

	// Tool calls requested by the model.
	for _, call := range msg.ToolCalls {
		callNames[call.ID] = call.Function.Name
		reply.ToolCalls = append(reply.ToolCalls, call.Function.Name)
	}

	// Tool results. Only final_answer contributes to the reply text; other
	// observations stay inside the framework's reasoning loop.
	if msg.Role == model.RoleTool && msg.ToolID != "" {
		if msg.ToolName == "final_answer" || callNames[msg.ToolID] == "final_answer" {
			var result struct {
				Answer string `json:"answer"`
			}
			if err := json.Unmarshal([]byte(msg.Content), &result); err == nil && result.Answer != "" {
				*finalAnswer = result.Answer
			}
		}
		return
	}

	if msg.Role == model.RoleAssistant && msg.Content != "" {
		*lastAssistant = msg.Content
	}
}

// Close shuts the runner and its session backend down.
func (a *Assistant) Close() error {
	return a.runner.Close()
}

func (a *Assistant) countRun(result string) {
	if a.metrics != nil {
		a.metrics.AgentRunsTotal.WithLabelValues(result).Inc()
	}
}

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }
