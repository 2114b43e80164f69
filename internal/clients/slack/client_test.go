package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitForSlack_CutsAtLastNewline(t *testing.T) {
	text := "line one\nline two\nline three"
	chunks := SplitForSlack(text, 15)

	assert.Equal(t, []string{"line one", "line two", "line three"}, chunks)
}

func TestSplitForSlack_HardCutWithoutNewline(t *testing.T) {
	chunks := SplitForSlack(strings.Repeat("a", 25), 10)
	assert.Equal(t, []string{"aaaaaaaaaa", "aaaaaaaaaa", "aaaaa"}, chunks)
}

func TestSplitForSlack_ShortTextIsOneChunk(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitForSlack("  hello \n", 3500))
	assert.Empty(t, SplitForSlack("   ", 3500))
}

func TestSplitForSlack_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("가", 12)
	chunks := SplitForSlack(text, 5)

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 5)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSend_PostsEveryChunk(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		got = append(got, payload["text"])
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithChunkSize(10))
	n, err := c.Send(context.Background(), "first\nsecond\nthird")
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestSend_StopsOnFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid_token"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithChunkSize(10))
	n, err := c.Send(context.Background(), "first\nsecond")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_token")
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, calls)
}
