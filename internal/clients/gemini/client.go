// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
)

const DefaultModel = "gemini-2.5-flash"

// SystemInstruction keeps the model grounded in the supplied news
const SystemInstruction = "당신은 신중한 금융 리서치 보조자입니다. 주어진 뉴스 근거를 벗어나 추측하지 말고, 불확실한 값은 명확히 표시하세요."

// DefaultPromptRICE is used when no prompt file is configured or readable
const DefaultPromptRICE = `### R (Role) - 역할

당신은 10년 경력의 트레이딩 전문가입니다.

* 매일 새벽 글로벌 뉴스와 공시를 분석
* 테마주/이슈 선점 투자 전문
* 정치/경제 이벤트 -> 수혜주 연결 분석 능력

### I (Instruction) - 지시사항

오늘 주식장 시작 전, 매매에 활용할 수 있는 핵심 정보를 분석해주세요.

분석 조건:

* 뉴스 유형: 글로벌이슈, 정치, 테마
* 미국 증시, 중국 정책, 환율, 원자재, 지정학 리스크
* 시장: 전체 (한국 + 미국 + 글로벌 전체 시장)

### C (Context) - 맥락

* 장 시작 전 30분~1시간 내 빠른 의사결정 필요
* 단타 매매 (당일~2-3일 보유) 관점
* 뉴스 -> 종목 연결이 핵심 (왜 이 종목이 움직일지)

### E (Example) - 출력 형식

# 오늘의 핵심 뉴스 & 수혜주
`

// Client generates digests with a Gemini model
type Client struct {
	client *genai.Client
	model  string
	logger arbor.ILogger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// GenerateDigest renders the RICE prompt with the news context and returns the digest markdown
func (c *Client) GenerateDigest(ctx context.Context, prompt string, news []models.NewsItem) (string, error) {
	userInput := BuildUserInput(prompt, news)

	c.logger.Info().Str("model", c.model).Int("news", len(news)).Msg("Generating digest")

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userInput), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate digest: %w", err)
	}

	text, err := extractTextFromResponse(result)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("gemini returned empty output")
	}
	return text, nil
}

// BuildUserInput appends the numbered news list and output rules to the prompt
func BuildUserInput(prompt string, news []models.NewsItem) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\n")
	sb.WriteString("아래는 최근 24시간 뉴스 후보 목록입니다. 반드시 이 목록을 우선 근거로 분석하세요.\n")
	sb.WriteString("출력은 Example 형식을 최대한 그대로 유지해 주세요.\n")
	sb.WriteString("현재가/등락 등 실시간 시세가 확실하지 않으면 '확인 필요'로 표기하세요.\n\n")
	sb.WriteString("[최근 24시간 뉴스 목록]\n")
	sb.WriteString(BuildNewsContext(news))
	return sb.String()
}

// BuildNewsContext renders news items as numbered entries separated by blank lines
func BuildNewsContext(news []models.NewsItem) string {
	entries := make([]string, 0, len(news))
	for i, item := range news {
		entries = append(entries, fmt.Sprintf("[%d] 제목: %s\n- 출처: %s\n- 시간: %s\n- 링크: %s",
			i+1, item.Title, item.Source, item.PublishedAt, item.URL))
	}
	return strings.Join(entries, "\n\n")
}

// LoadPrompt reads the prompt file, falling back to DefaultPromptRICE when it is missing or blank
func LoadPrompt(path string) string {
	if path == "" {
		return DefaultPromptRICE
	}
	data, err := os.ReadFile(path)
	if err != nil || strings.TrimSpace(string(data)) == "" {
		return DefaultPromptRICE
	}
	return string(data)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}

	return sb.String(), nil
}

// Ensure Client implements DigestGenerator
var _ interfaces.DigestGenerator = (*Client)(nil)
