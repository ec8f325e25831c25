// Package tools defines the callable tools this project contributes to the
// agent framework. Each tool is a thin typed function: framework concerns
// (schema generation, argument decoding, dispatch, step limits) stay inside
// trpc-agent-go.
package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"trpc.group/trpc-go/trpc-agent-go/tool"
	"trpc.group/trpc-go/trpc-agent-go/tool/function"

	"github.com/evyataryagoni/timebot/internal/clock"
	"github.com/evyataryagoni/timebot/internal/imagegen"
	"github.com/evyataryagoni/timebot/internal/logger"
	"github.com/evyataryagoni/timebot/internal/metrics"
)

const (
	// webFetchTimeout bounds one page download; an agent turn should not
	// hang on a slow site.
	webFetchTimeout = 15 * time.Second

	// maxFetchBytes caps how much of a response body is read.
	maxFetchBytes = 1 << 20

	// maxFetchChars caps the content handed back to the model.
	maxFetchChars = 10000
)

// Toolbox builds the tool set from the underlying services.
type Toolbox struct {
	clock   *clock.Service
	images  imagegen.Client
	web     *http.Client
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// New creates a toolbox.
//
// Parameters:
//   - clockSvc: the local-time calculator
//   - images: image-generation client
//   - m: metrics collector (optional, can be nil)
//   - log: logger (optional, can be nil)
func New(clockSvc *clock.Service, images imagegen.Client, m *metrics.Metrics, log *logger.Logger) *Toolbox {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Toolbox{
		clock:   clockSvc,
		images:  images,
		web:     &http.Client{Timeout: webFetchTimeout},
		metrics: m,
		logger:  log.WithComponent("Toolbox"),
	}
}

// All returns every tool the agent is given, final_answer included.
func (t *Toolbox) All() []tool.Tool {
	return []tool.Tool{
		t.LocalTimeFromIPTool(),
		t.TimezoneTool(),
		t.ImageTool(),
		t.FinalAnswerTool(),
		t.WebFetchTool(),
	}
}

// --- get_local_time_from_ip ---

type localTimeFromIPRequest struct{}

type localTimeResult struct {
	Result string `json:"result" jsonschema:"description=Human-readable local time statement"`
}

// LocalTimeFromIPTool returns the tool that chains IP lookup, geolocation
// and time calculation. It takes no arguments.
func (t *Toolbox) LocalTimeFromIPTool() tool.CallableTool {
	return function.NewFunctionTool(
		t.localTimeFromIP,
		function.WithName("get_local_time_from_ip"),
		function.WithDescription("Determines the caller's public IP address, resolves its geographic "+
			"location, and returns the current local time in that location's timezone."),
	)
}

func (t *Toolbox) localTimeFromIP(ctx context.Context, _ localTimeFromIPRequest) (localTimeResult, error) {
	start := time.Now()

	resp, err := t.clock.LocalTimeFromIP(ctx)
	t.observe("get_local_time_from_ip", start, err)
	if err != nil {
		return localTimeResult{}, err
	}

	place := resp.City
	if place == "" {
		place = "your location"
	}
	return localTimeResult{
		Result: fmt.Sprintf("The current local time in %s (%s) is: %s", place, resp.Timezone, resp.LocalTime),
	}, nil
}

// --- get_current_time_in_timezone ---

type timezoneRequest struct {
	Timezone string `json:"timezone" jsonschema:"description=A valid IANA timezone identifier such as 'America/New_York'; pass 'local' to use the caller's own location"`
}

// TimezoneTool returns the tool that formats the current time in an
// explicitly named timezone, bypassing the IP lookup.
func (t *Toolbox) TimezoneTool() tool.CallableTool {
	return function.NewFunctionTool(
		t.timeInTimezone,
		function.WithName("get_current_time_in_timezone"),
		function.WithDescription("Fetches the current local time in a specified IANA timezone "+
			"(e.g. 'America/New_York'). No network lookup is involved unless 'local' is requested."),
	)
}

func (t *Toolbox) timeInTimezone(ctx context.Context, req timezoneRequest) (localTimeResult, error) {
	start := time.Now()

	resp, err := t.clock.LocalTime(ctx, req.Timezone)
	t.observe("get_current_time_in_timezone", start, err)
	if err != nil {
		return localTimeResult{}, err
	}

	if resp.City != "" {
		// The "local" redirect resolved an actual place.
		return localTimeResult{
			Result: fmt.Sprintf("The current local time in %s (%s) is: %s", resp.City, resp.Timezone, resp.LocalTime),
		}, nil
	}
	return localTimeResult{
		Result: fmt.Sprintf("The current local time in %s is: %s", resp.Timezone, resp.LocalTime),
	}, nil
}

// --- generate_image ---

type imageRequest struct {
	Prompt string `json:"prompt" jsonschema:"description=Text description of the image to generate"`
}

type imageResult struct {
	URL string `json:"url" jsonschema:"description=URL of the generated image"`
}

// ImageTool returns the image-generation passthrough tool.
func (t *Toolbox) ImageTool() tool.CallableTool {
	return function.NewFunctionTool(
		t.generateImage,
		function.WithName("generate_image"),
		function.WithDescription("Generates an image from a text prompt and returns its URL."),
	)
}

func (t *Toolbox) generateImage(ctx context.Context, req imageRequest) (imageResult, error) {
	start := time.Now()

	url, err := t.images.Generate(ctx, req.Prompt)
	t.observe("generate_image", start, err)
	if err != nil {
		return imageResult{}, err
	}
	return imageResult{URL: url}, nil
}

// --- web_fetch ---

type webFetchRequest struct {
	URL string `json:"url" jsonschema:"description=Absolute http(s) URL of the page to fetch"`
}

type webFetchResult struct {
	Content string `json:"content" jsonschema:"description=Page content as markdown or plain text, possibly truncated"`
}

// WebFetchTool returns the tool that downloads one web page and hands its
// content to the model, HTML converted to markdown.
func (t *Toolbox) WebFetchTool() tool.CallableTool {
	return function.NewFunctionTool(
		t.webFetch,
		function.WithName("web_fetch"),
		function.WithDescription("Fetches a web page and returns its content as markdown or plain text. "+
			"Use it to read documentation or articles the user points at."),
	)
}

func (t *Toolbox) webFetch(ctx context.Context, req webFetchRequest) (webFetchResult, error) {
	start := time.Now()

	content, err := t.fetchPage(ctx, req.URL)
	t.observe("web_fetch", start, err)
	if err != nil {
		return webFetchResult{}, err
	}
	return webFetchResult{Content: content}, nil
}

// fetchPage downloads one page. HTML bodies are converted to markdown, text
// bodies pass through untouched, anything else is rejected.
func (t *Toolbox) fetchPage(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("invalid URL %q: only http(s) is supported", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "timebot/web-fetch")

	resp, err := t.web.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: HTTP status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}

	mediaType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	content := string(body)
	switch {
	case mediaType == "text/html":
		content, err = htmlToMarkdown(content)
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", rawURL, err)
		}
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/json", mediaType == "":
		// pass through as-is
	default:
		return "", fmt.Errorf("fetch %s: unsupported content type %s", rawURL, mediaType)
	}

	return truncate(content, maxFetchChars), nil
}

func htmlToMarkdown(html string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	return conv.ConvertString(html)
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// --- final_answer ---

type finalAnswerRequest struct {
	Answer string `json:"answer" jsonschema:"description=The final answer to present to the user"`
}

type finalAnswerResult struct {
	Answer string `json:"answer"`
}

// FinalAnswerTool returns the terminal tool. Calling it ends the agent's
// turn: the tool is registered with skip-summarization so the framework
// emits its result directly instead of asking the model for another pass.
func (t *Toolbox) FinalAnswerTool() tool.CallableTool {
	return function.NewFunctionTool(
		t.finalAnswer,
		function.WithName("final_answer"),
		function.WithDescription("Provides the final answer to the user's question. Call this exactly once, "+
			"when the answer is complete."),
		function.WithSkipSummarization(true),
	)
}

func (t *Toolbox) finalAnswer(ctx context.Context, req finalAnswerRequest) (finalAnswerResult, error) {
	t.observe("final_answer", time.Now(), nil)
	return finalAnswerResult{Answer: req.Answer}, nil
}

// observe records one tool invocation in metrics and the log.
func (t *Toolbox) observe(name string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	if t.metrics != nil {
		t.metrics.ToolCallsTotal.WithLabelValues(name, status).Inc()
		t.metrics.ToolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}

	toolLog := t.logger.WithTool(name)
	logEvent := toolLog.Info()
	if err != nil {
		logEvent = toolLog.Warn().Err(err)
	}
	logEvent.Str("status", status).Msg("Tool invocation")
}
