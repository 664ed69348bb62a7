package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

const WikipediaToolName = "wikipedia"

const (
	defaultWikipediaBaseURL = "https://en.wikipedia.org"
	wikipediaUserAgent      = "t3chat/1.0 (wikipedia tool)"
	maxRelatedResults       = 3
)

// WikipediaTool searches Wikipedia and returns the summary of the best match.
type WikipediaTool struct {
	baseURL string
	client  *http.Client
}

type wikipediaInput struct {
	Query string `json:"query"`
}

// WikipediaArticle is the structured tool output.
type WikipediaArticle struct {
	Title   string            `json:"title"`
	Summary string            `json:"summary"`
	URL     string            `json:"url"`
	Related []WikipediaResult `json:"related,omitempty"`
}

type WikipediaResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func NewWikipediaTool(baseURL string, client *http.Client) *WikipediaTool {
	if baseURL == "" {
		baseURL = defaultWikipediaBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WikipediaTool{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (t *WikipediaTool) Name() string { return WikipediaToolName }

func (t *WikipediaTool) Description() string {
	return "Look up a topic on Wikipedia and return the summary of the best matching article with its URL."
}

func (t *WikipediaTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The topic to look up, e.g. \"Go (programming language)\".",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WikipediaTool) Run(ctx context.Context, input string) (*Result, error) {
	var in wikipediaInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return nil, permanent(errors.Wrap(err, "invalid wikipedia input"))
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, permanent(errors.New("query is empty"))
	}

	hits, err := t.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Result{Output: fmt.Sprintf("No Wikipedia article found for %q.", query), Success: true}, nil
	}

	article, err := t.summary(ctx, hits[0].Title)
	if err != nil {
		return nil, err
	}
	article.Related = hits[1:]

	output, err := json.Marshal(article)
	if err != nil {
		return nil, permanent(err)
	}
	return &Result{Output: string(output), Success: true, Data: article}, nil
}

func (t *WikipediaTool) search(ctx context.Context, query string) ([]WikipediaResult, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprint(maxRelatedResults+1))
	params.Set("format", "json")
	params.Set("utf8", "1")

	var body struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := t.getJSON(ctx, t.baseURL+"/w/api.php?"+params.Encode(), &body); err != nil {
		return nil, errors.Wrap(err, "wikipedia search")
	}

	results := make([]WikipediaResult, 0, len(body.Query.Search))
	for _, s := range body.Query.Search {
		results = append(results, WikipediaResult{Title: s.Title, Snippet: StripHTML(s.Snippet)})
	}
	return results, nil
}

func (t *WikipediaTool) summary(ctx context.Context, title string) (*WikipediaArticle, error) {
	var body struct {
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	path := "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	if err := t.getJSON(ctx, t.baseURL+path, &body); err != nil {
		return nil, errors.Wrap(err, "wikipedia summary")
	}

	article := &WikipediaArticle{
		Title:   body.Title,
		Summary: body.Extract,
		URL:     body.ContentURLs.Desktop.Page,
	}
	if article.Title == "" {
		article.Title = title
	}
	if article.URL == "" {
		article.URL = t.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	}
	return article, nil
}

func (t *WikipediaTool) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return permanent(err)
	}
	req.Header.Set("User-Agent", wikipediaUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return errors.Wrap(err, "service unavailable")
		}
		return permanent(err)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}

// StripHTML returns the text content of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}
