package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-digest/internal/models"
)

const sampleDigest = `# 오늘의 핵심 뉴스

**한줄 요약:** 반도체 강세

## 0. 시장 레짐
| 항목 | 판단 |
|---|---|
| 시장 모드 | 리스크온 (위험자산 선호) |

---

## 1. 주요 지표
- S&P 500: 5812.4
- [연준 발표](https://example.com/fed)
`

// writeConfigDir creates a config dir that keeps the parse command offline and quiet
func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `
[backfill]
enabled = false

[logging]
level = "error"
outputs = ["console"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "digest.toml"), []byte(cfg), 0644))
	return dir
}

func TestParseCmd_File(t *testing.T) {
	dir := writeConfigDir(t)
	input := filepath.Join(t.TempDir(), "digest.md")
	require.NoError(t, os.WriteFile(input, []byte(sampleDigest), 0644))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"parse", input, "--config-dir", dir})
	require.NoError(t, cmd.Execute())

	var got parseOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	assert.Equal(t, 5812.4, got.Properties.SP500)
	assert.Equal(t, "리스크온", got.Properties.MarketMode)
	assert.Equal(t, "반도체 강세", got.Properties.Summary)
	assert.Zero(t, got.Properties.VIX)

	require.NotEmpty(t, got.Blocks)
	assert.Equal(t, models.BlockHeading, got.Blocks[0].Kind)

	var sawDivider, sawLink bool
	for _, b := range got.Blocks {
		if b.Kind == models.BlockDivider {
			sawDivider = true
		}
		for _, s := range b.Spans {
			if s.IsLink() && s.URL == "https://example.com/fed" {
				sawLink = true
			}
		}
	}
	assert.True(t, sawDivider)
	assert.True(t, sawLink)
}

func TestParseCmd_StdinPropertiesOnly(t *testing.T) {
	dir := writeConfigDir(t)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(sampleDigest))
	cmd.SetArgs([]string{"parse", "--config-dir", dir, "--properties-only"})
	require.NoError(t, cmd.Execute())

	var props models.DigestProperties
	require.NoError(t, json.Unmarshal(out.Bytes(), &props))
	assert.Equal(t, 5812.4, props.SP500)
	assert.NotContains(t, out.String(), `"blocks"`)
}

func TestParseCmd_MissingFile(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"parse", filepath.Join(t.TempDir(), "missing.md"), "--config-dir", writeConfigDir(t)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.md")
}

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader("from stdin"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = readInput(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)
}

func TestWriteParseOutput_EmptyBlocks(t *testing.T) {
	var out bytes.Buffer
	d := &models.Digest{Properties: models.NewDigestProperties(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))}
	require.NoError(t, writeParseOutput(&out, d, false))
	assert.Contains(t, out.String(), `"blocks": []`)
}
