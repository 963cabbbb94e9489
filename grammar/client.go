package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Match is one issue reported for a text. Offset and Length count code
// points of the checked text.
type Match struct {
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	Message string `json:"message"`
}

type Client interface {
	Check(ctx context.Context, text string) ([]Match, error)
}

// LanguageToolClient talks to the public LanguageTool HTTP API or a
// self-hosted instance of it.
type LanguageToolClient struct {
	endpoint   string
	language   string
	httpClient *http.Client
}

func NewLanguageToolClient(endpoint string, language string, httpClient *http.Client) *LanguageToolClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LanguageToolClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		language:   language,
		httpClient: httpClient,
	}
}

type ltResponse struct {
	Matches []struct {
		Message string `json:"message"`
		Offset  int    `json:"offset"`
		Length  int    `json:"length"`
	} `json:"matches"`
}

func (c *LanguageToolClient) Check(ctx context.Context, text string) ([]Match, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create languagetool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("languagetool request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("languagetool returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed ltResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode languagetool response: %w", err)
	}

	// LanguageTool counts offsets in UTF-16 code units
	toRune := utf16ToRuneIndex(text)
	last := len(toRune) - 1

	matches := make([]Match, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		if m.Length <= 0 || m.Offset < 0 || m.Offset >= last {
			continue
		}
		end := m.Offset + min(m.Length, last-m.Offset)
		start := toRune[m.Offset]
		stop := toRune[end]
		if stop <= start {
			continue
		}
		matches = append(matches, Match{
			Offset:  start,
			Length:  stop - start,
			Message: m.Message,
		})
	}
	return matches, nil
}

// utf16ToRuneIndex maps every UTF-16 position of text (including the end
// position) to the index of the code point it falls in.
func utf16ToRuneIndex(text string) []int {
	idx := make([]int, 0, len(text)+1)
	i := 0
	for _, r := range text {
		// code points above the BMP are stored as surrogate pairs
		n := 1
		if r >= 0x10000 {
			n = 2
		}
		for k := 0; k < n; k++ {
			idx = append(idx, i)
		}
		i++
	}
	return append(idx, i)
}
