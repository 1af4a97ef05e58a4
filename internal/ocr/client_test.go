package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

type fakeGenerator struct {
	replies []*genai.GenerateContentResponse
	errs    []error
	calls   int
	parts   []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.parts = parts
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return nil, errors.New("no more replies")
}

func textReply(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
	}}}
}

func TestExtract_RetriesThenDecodes(t *testing.T) {
	gen := &fakeGenerator{
		errs: []error{errors.New("503"), nil, nil},
		replies: []*genai.GenerateContentResponse{
			nil,
			textReply("not json"),
			textReply("```json\n[{\"code\":\"A-1\",\"qty\":2}]\n```"),
		},
	}
	c := NewWithGenerator(gen, Options{MaxRetries: 3, RetryDelay: time.Millisecond}, nil)

	items, err := c.Extract(context.Background(), "image/png", []byte{1, 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A-1", items[0]["code"])
	assert.Equal(t, 3, gen.calls)

	require.Len(t, gen.parts, 2)
	assert.Equal(t, genai.Blob{MIMEType: "image/png", Data: []byte{1, 2}}, gen.parts[0])
}

func TestExtract_GivesUp(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("a"), errors.New("b")}}
	c := NewWithGenerator(gen, Options{MaxRetries: 2}, nil)

	_, err := c.Extract(context.Background(), "image/png", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts: b")
}

func TestExtract_Blocked(t *testing.T) {
	gen := &fakeGenerator{replies: []*genai.GenerateContentResponse{{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}}}
	c := NewWithGenerator(gen, Options{MaxRetries: 3}, nil)

	_, err := c.Extract(context.Background(), "image/png", nil)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 1, gen.calls)
}

func TestExtract_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGenerator{errs: []error{errors.New("a")}}
	c := NewWithGenerator(gen, Options{MaxRetries: 3, RetryDelay: time.Hour}, nil)

	cancel()
	_, err := c.Extract(ctx, "image/png", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.gif")
	require.NoError(t, os.WriteFile(path, []byte("GIF"), 0o644))

	c := NewWithGenerator(&fakeGenerator{}, Options{}, nil)
	_, err := c.ExtractFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestPrompt_ListsVocabulary(t *testing.T) {
	p := Prompt()
	for _, key := range types.FillOrder {
		assert.Contains(t, p, "- "+string(key)+": ")
	}
	assert.Equal(t, len(types.FillOrder), strings.Count(p, "\n- "))
}

func TestParseReply(t *testing.T) {
	items, err := ParseReply(`  {"items":[{"uom":"EA"}]} `)
	require.NoError(t, err)
	assert.Equal(t, "EA", items[0]["uom"])

	items, err = ParseReply("```\n[]\n```")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMIMEType(t *testing.T) {
	m, ok := MIMEType("a/B.JPG")
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", m)

	_, ok = MIMEType("a.tiff")
	assert.False(t, ok)
}
