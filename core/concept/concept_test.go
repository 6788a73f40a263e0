package concept

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mindmapforge/core/model"
)

type fakeLLM struct {
	response  string
	responses []string // when set, call k (from 0) returns responses[k % len(responses)]
	err       error
	calls     int32
}

func (f *fakeLLM) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if len(f.responses) > 0 {
		return f.responses[int(n-1)%len(f.responses)], f.err
	}
	return f.response, f.err
}

func TestExtractObjectForm(t *testing.T) {
	llm := &fakeLLM{response: `{"concepts":[{"name":"Machine Learning","importance":0.9},{"name":"Go","importance":0.6}]}`}
	e := NewExtractor(llm)

	concepts, err := e.Extract(context.Background(), "some text about machine learning and go", nil)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, int32(1), llm.calls)
}

func TestExtractLegacyStringArrayForm(t *testing.T) {
	llm := &fakeLLM{response: `["concept one", "concept two"]`}
	e := NewExtractor(llm)

	concepts, err := e.Extract(context.Background(), "legacy shaped response text", nil)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	for _, c := range concepts {
		assert.Equal(t, model.DefaultImportance, c.Importance)
	}
}

func TestExtractHandlesMarkdownFencedJSON(t *testing.T) {
	llm := &fakeLLM{response: "```json\n{\"concepts\":[{\"name\":\"fenced\",\"importance\":0.5}]}\n```"}
	e := NewExtractor(llm)

	concepts, err := e.Extract(context.Background(), "text wrapped in fences", nil)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, "fenced", concepts[0].Text)
}

func TestExtractRejectsEmptyText(t *testing.T) {
	e := NewExtractor(&fakeLLM{})
	_, err := e.Extract(context.Background(), "   ", nil)
	require.Error(t, err)
	var mmErr *model.Error
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, model.KindInvalidInput, mmErr.Kind)
}

func TestExtractMalformedResponseIsUpstreamError(t *testing.T) {
	e := NewExtractor(&fakeLLM{response: "not json at all"})
	_, err := e.Extract(context.Background(), "some reasonably long input text here", nil)
	require.Error(t, err)
	var mmErr *model.Error
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, model.KindUpstream, mmErr.Kind)
}

func TestExtractChunksLongTextAndMergesByMaxImportance(t *testing.T) {
	longText := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
	require.Greater(t, len(longText), directCallThreshold)

	llm := &fakeLLM{responses: []string{
		`{"concepts":[{"name":"fox","importance":0.4}]}`,
		`{"concepts":[{"name":"fox","importance":0.9}]}`,
		`{"concepts":[{"name":"fox","importance":0.6}]}`,
	}}
	e := NewExtractor(llm)

	concepts, err := e.Extract(context.Background(), longText, nil)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, "fox", concepts[0].Text)
	assert.GreaterOrEqual(t, llm.calls, int32(3))
	assert.Equal(t, float32(0.9), concepts[0].Importance)
}

func TestParseConceptsCleansNames(t *testing.T) {
	concepts, err := parseConcepts(`{"concepts":[{"name":"  \"Quoted Name\".  ","importance":0.7}]}`)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, "quoted name", concepts[0].Text)
}
