// =============================================================================
// Line-Item Autofill - OCR Module
// =============================================================================
//
// Extracts line items from a scanned invoice or delivery order with Gemini.
// The model is asked for a JSON array of objects using the semantic key
// vocabulary; the reply is decoded with the same reader the converter uses
// for OCR JSON files, so an extraction can be saved and filled like any other
// source.
//
// =============================================================================

package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ginjaninja78/lineitem-autofill/internal/converter"
	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

var (
	// ErrUnsupportedDocument is returned for files the model cannot read.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrBlocked is returned when the reply was withheld by the safety filter.
	ErrBlocked = errors.New("response blocked by safety filter")
)

// Generator is the part of *genai.GenerativeModel the client needs.
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Options configures a Client.
type Options struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

// Client extracts line items from documents.
type Client struct {
	gen    Generator
	client *genai.Client
	opts   Options
	log    *zap.Logger
}

// New connects to Gemini.
func New(ctx context.Context, opts Options, log *zap.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}

	c := NewWithGenerator(model, opts, log)
	c.client = client
	return c, nil
}

// NewWithGenerator wraps an existing generator.
func NewWithGenerator(gen Generator, opts Options, log *zap.Logger) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{gen: gen, opts: opts, log: log}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ExtractFile reads a document from disk and extracts its line items.
func (c *Client) ExtractFile(ctx context.Context, path string) ([]map[string]any, error) {
	mime, ok := MIMEType(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return c.Extract(ctx, mime, data)
}

// Extract sends one document and decodes the reply, retrying transport
// failures, empty replies and undecodable replies up to MaxRetries times.
func (c *Client) Extract(ctx context.Context, mime string, data []byte) ([]map[string]any, error) {
	parts := []genai.Part{
		genai.Blob{MIMEType: mime, Data: data},
		genai.Text(Prompt()),
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.RetryDelay):
			}
		}

		c.log.Debug("requesting extraction", zap.Int("attempt", attempt), zap.Int("bytes", len(data)))
		resp, err := c.gen.GenerateContent(ctx, parts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.Warn("extraction attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		text, err := replyText(resp)
		if errors.Is(err, ErrBlocked) {
			return nil, err
		}
		if err != nil {
			lastErr = err
			c.log.Warn("extraction attempt returned nothing", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		items, err := ParseReply(text)
		if err != nil {
			lastErr = err
			c.log.Warn("extraction reply is not line-item JSON", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return items, nil
	}
	return nil, fmt.Errorf("extraction failed after %d attempts: %w", c.opts.MaxRetries, lastErr)
}

// =============================================================================
// PROMPT / REPLY
// =============================================================================

const systemInstruction = `You transcribe purchase documents into structured line items.
Reply with JSON only. Never invent values that are not printed on the document.`

var keyHints = map[types.Key]string{
	types.KeyCode:         "supplier item code",
	types.KeyBrand:        "brand or manufacturer",
	types.KeyDescShort:    "short description",
	types.KeyDescLong:     "full description",
	types.KeyUOM:          "unit of measure, e.g. EA, BOX",
	types.KeyQty:          "quantity (number)",
	types.KeyUnitList:     "list price per unit",
	types.KeyDiscPct:      "discount percent (number)",
	types.KeyUnitPrice:    "net price per unit (number)",
	types.KeyAmount:       "line total (number)",
	types.KeyUnitWithGST:  "unit price including tax (number)",
	types.KeyConv:         "conversion factor to stock unit (number)",
	types.KeyQtyUOMStk:    "quantity in stock unit (number)",
	types.KeyUPriceUOMStk: "price per stock unit (number)",
	types.KeyUOMStk:       "stock unit of measure",
	types.KeyGST:          "true if the line is taxable",
	types.KeyAcctDisp:     "account",
	types.KeyDeptDisp:     "department",
	types.KeyProjDisp:     "project",
	types.KeyRqtDay:       "required-by day, 2 digits",
	types.KeyRqtMonth:     "required-by month, 2 digits",
	types.KeyRqtYear:      "required-by year, 4 digits",
	types.KeyBatchNum:     "batch or lot number",
}

// Prompt lists the key vocabulary for the model.
func Prompt() string {
	var b strings.Builder
	b.WriteString("Extract every line item from this document as a JSON array of objects.\n")
	b.WriteString("Use only these keys and omit a key when the document has no value for it:\n")
	for _, key := range types.FillOrder {
		fmt.Fprintf(&b, "- %s: %s\n", key, keyHints[key])
	}
	b.WriteString("Numbers must be JSON numbers without currency symbols or thousands separators.\n")
	return b.String()
}

func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", ErrBlocked
	}

	var b strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("empty response")
	}
	return b.String(), nil
}

// ParseReply decodes a model reply, tolerating a Markdown code fence around
// the JSON.
func ParseReply(text string) ([]map[string]any, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return converter.DecodeItems([]byte(text))
}

// MIMEType maps a document extension to the MIME type sent to the model.
func MIMEType(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".webp":
		return "image/webp", true
	case ".pdf":
		return "application/pdf", true
	}
	return "", false
}
