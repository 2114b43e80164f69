package gemini

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/bobmcallan/vire-digest/internal/models"
)

func TestBuildNewsContext(t *testing.T) {
	news := []models.NewsItem{
		{Title: "Fed holds", URL: "https://n.test/a", Source: "reuters.com", PublishedAt: "20261014T220000Z"},
		{Title: "Chips rally", URL: "https://n.test/b", Source: "cnbc.com", PublishedAt: "20261014T230000Z"},
	}

	got := BuildNewsContext(news)

	want := "[1] 제목: Fed holds\n- 출처: reuters.com\n- 시간: 20261014T220000Z\n- 링크: https://n.test/a\n\n" +
		"[2] 제목: Chips rally\n- 출처: cnbc.com\n- 시간: 20261014T230000Z\n- 링크: https://n.test/b"
	assert.Equal(t, want, got)
	assert.Empty(t, BuildNewsContext(nil))
}

func TestBuildUserInput(t *testing.T) {
	input := BuildUserInput("PROMPT", []models.NewsItem{{Title: "t", URL: "u", Source: "s", PublishedAt: "p"}})

	assert.True(t, strings.HasPrefix(input, "PROMPT\n\n"))
	assert.Contains(t, input, "[최근 24시간 뉴스 목록]\n[1] 제목: t")
	assert.Contains(t, input, "'확인 필요'")
}

func TestLoadPrompt(t *testing.T) {
	dir := t.TempDir()

	custom := filepath.Join(dir, "custom.md")
	if err := os.WriteFile(custom, []byte("### R (Role)\ncustom"), 0644); err != nil {
		t.Fatal(err)
	}
	blank := filepath.Join(dir, "blank.md")
	if err := os.WriteFile(blank, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "### R (Role)\ncustom", LoadPrompt(custom))
	assert.Equal(t, DefaultPromptRICE, LoadPrompt(blank))
	assert.Equal(t, DefaultPromptRICE, LoadPrompt(filepath.Join(dir, "missing.md")))
	assert.Equal(t, DefaultPromptRICE, LoadPrompt(""))
}

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "# Digest\n"},
				{Text: "body"},
			}},
		}},
	}

	text, err := extractTextFromResponse(resp)
	assert.NoError(t, err)
	assert.Equal(t, "# Digest\nbody", text)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}
