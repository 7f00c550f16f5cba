// Package classifier asks a chat-completion model whether content contains PII.
package classifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// Content shapes, also used as metric labels
const (
	ShapeText     = "text"
	ShapeImage    = "image"
	ShapeDocument = "document"
)

const systemPrompt = `You are a data-protection filter. Decide whether the content you are given contains personally identifiable information (PII): for example email addresses, phone numbers, postal addresses, government or tax identifiers, passport or licence numbers, bank or card numbers, dates of birth tied to a person, or medical details about an identifiable person.
Answer with exactly one word: true if the content contains PII, false otherwise. Do not explain.`

// ChatCompleter is the slice of the OpenAI client the gateway needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Gateway classifies text, images and documents with one completion request per call.
// Transport and API failures are returned as errors; they never become verdicts.
type Gateway struct {
	client      ChatCompleter
	model       string
	visionModel string
	timeout     time.Duration
	docLimit    int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewOpenAIClient builds a go-openai client pointed at the configured endpoint
func NewOpenAIClient(cfg config.ClassifierConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout()}
	return openai.NewClientWithConfig(clientCfg)
}

// NewGateway wires a gateway around client. m may be nil.
func NewGateway(client ChatCompleter, cfg config.ClassifierConfig, m *metrics.Metrics, logger zerolog.Logger) *Gateway {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = config.DefaultClassifierTimeoutSeconds * time.Second
	}
	docLimit := cfg.DocumentCharLimit
	if docLimit <= 0 {
		docLimit = config.DefaultClassifierDocumentChars
	}
	return &Gateway{
		client:      client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		timeout:     timeout,
		docLimit:    docLimit,
		metrics:     m,
		logger:      logger.With().Str("component", "ClassifierGateway").Logger(),
	}
}

// ClassifyText reports whether text contains PII
func (g *Gateway) ClassifyText(ctx context.Context, text string) (bool, error) {
	return g.classify(ctx, ShapeText, g.model, []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: text},
	})
}

// ClassifyImage reports whether an image contains PII. The image is sent inline as a data URL
// because platform file URLs require the platform's credentials.
func (g *Gateway) ClassifyImage(ctx context.Context, data []byte, mediaType string) (bool, error) {
	if len(data) == 0 {
		return false, common.NewValidationError("image", 0, "empty image")
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))
	return g.classify(ctx, ShapeImage, g.visionModel, []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: "Does this image contain PII?"},
		{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
			URL:    dataURL,
			Detail: openai.ImageURLDetailLow,
		}},
	})
}

// ClassifyDocument reports whether extracted document text contains PII.
// Only the first DocumentCharLimit characters are inspected.
func (g *Gateway) ClassifyDocument(ctx context.Context, text string) (bool, error) {
	return g.classify(ctx, ShapeDocument, g.model, []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: Truncate(text, g.docLimit)},
	})
}

func (g *Gateway) classify(ctx context.Context, shape, model string, parts []openai.ChatMessagePart) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		// zero would be dropped by omitempty and replaced by the server default
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   5,
	})
	took := time.Since(start)

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = common.WrapErrorf(common.ErrTimeout, "classification exceeded %s", g.timeout)
		}
		g.metrics.ObserveClassification(shape, metrics.ResultError, took)
		g.logger.Warn().Err(err).Str("shape", shape).Dur("took", took).Msg("Classification request failed")
		return false, common.WrapError(err, "classification request failed")
	}
	if len(resp.Choices) == 0 {
		g.metrics.ObserveClassification(shape, metrics.ResultError, took)
		return false, common.NewError("classification response had no choices")
	}

	answer := resp.Choices[0].Message.Content
	verdict := ParseVerdict(answer)

	result := metrics.ResultNegative
	if verdict {
		result = metrics.ResultPositive
	}
	g.metrics.ObserveClassification(shape, result, took)
	g.logger.Debug().
		Str("shape", shape).
		Str("answer", answer).
		Bool("contains_pii", verdict).
		Dur("took", took).
		Msg("Classification completed")

	return verdict, nil
}

// Truncate returns at most limit characters (runes) of s
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
