package mailer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// styleRule is one selector and the declarations inlined onto every match.
// Rules are applied in order, so later declarations win.
type styleRule struct {
	selector string
	style    string
}

var styleRules = []styleRule{
	{".container", "max-width: 800px; margin: 0 auto; background-color: #ffffff; padding: 30px; border-radius: 8px; font-family: -apple-system, BlinkMacSystemFont, 'Malgun Gothic', '맑은 고딕', 'Segoe UI', Arial, sans-serif; font-size: 15px; line-height: 1.7; color: #2c3e50;"},
	{"h1", "font-size: 28px; color: #ffffff; background-color: #667eea; margin: 0 0 25px 0; padding: 25px 30px; border-radius: 8px 8px 0 0; text-align: center;"},
	{"h2", "font-size: 22px; color: #ffffff; background-color: #f5576c; margin: 35px 0 20px 0; padding: 15px 30px; border-left: 5px solid #e74c3c;"},
	{"h3", "font-size: 19px; color: #2c3e50; margin-top: 30px; margin-bottom: 15px; padding: 12px 15px; background-color: #ecf0f1; border-left: 5px solid #3498db; border-radius: 4px;"},
	{"p", "font-size: 15px; line-height: 1.7; margin: 0 0 12px 0;"},
	{"table", "border-collapse: collapse; width: 100%; margin: 20px 0; font-size: 14px; background-color: #ffffff; border: 2px solid #2c3e50;"},
	{"th, td", "border: 1px solid #bdc3c7; padding: 16px 14px; text-align: left; vertical-align: top;"},
	{"th", "background-color: #2c3e50; color: #ffffff; font-weight: 700; font-size: 15px; border-bottom: 3px solid #e74c3c;"},
	{"td:first-child", "background-color: #ecf0f1; font-weight: 600; width: 20%;"},
	{"tr:nth-child(even) td:not(:first-child)", "background-color: #f8f9fa;"},
	{"hr", "border: 0; height: 3px; background-color: #764ba2; margin: 30px 0;"},
	{"code", "background-color: #f4f4f4; padding: 4px 10px; border-radius: 4px; font-family: 'Courier New', monospace; font-size: 13px; border: 1px solid #ddd;"},
	{"strong", "color: #e74c3c; font-weight: 700; background-color: #ffe5e5; padding: 2px 6px; border-radius: 3px;"},
	{"p strong", "background: none; padding: 0;"},
	{"blockquote", "border-left: 4px solid #f39c12; padding: 15px 20px; margin: 15px 0; background-color: #fef5e7;"},
	{"ul, ol", "margin: 15px 0; padding-left: 30px; line-height: 1.8;"},
	{"li", "margin-bottom: 8px;"},
	{"a", "color: #3498db; text-decoration: none; font-weight: 600;"},
}

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="background-color: #f8f9fa; padding: 20px; margin: 0;">
%s
</body>
</html>
`

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

// RenderHTML converts digest markdown into a self-contained HTML email body
// with every style inlined onto its elements.
func RenderHTML(text string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`<div class="container">`)
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	buf.WriteString(`</div>`)

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered html: %w", err)
	}

	for _, rule := range styleRules {
		doc.Find(rule.selector).Each(func(_ int, s *goquery.Selection) {
			s.SetAttr("style", mergeStyle(s.AttrOr("style", ""), rule.style))
		})
	}

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize html: %w", err)
	}
	return fmt.Sprintf(htmlShell, body), nil
}

func mergeStyle(existing, add string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return add
	}
	if !strings.HasSuffix(existing, ";") {
		existing += ";"
	}
	return existing + " " + add
}
