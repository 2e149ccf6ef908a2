package usclublax

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const (
	// UserAgent for requests
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// FetchTimeout bounds a single page fetch
	FetchTimeout = 30 * time.Second
)

// Fetcher retrieves a schedule page as an HTML string.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Client fetches schedule pages over plain HTTP
type Client struct {
	httpClient *http.Client
}

// NewClient creates a schedule page client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: FetchTimeout},
	}
}

// FetchPage retrieves a page body. Non-2xx responses are fetch failures.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch failed with status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	if len(body) == 0 {
		return "", fmt.Errorf("empty response body for %s", url)
	}

	return string(body), nil
}

// BrowserClient fetches schedule pages through a headless browser,
// for deployments where the source site serves JS-rendered markup
type BrowserClient struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewBrowserClient creates a headless browser client
func NewBrowserClient() (*BrowserClient, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(UserAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserClient{
		allocCtx: allocCtx,
		cancel:   cancel,
	}, nil
}

// Close releases browser resources
func (c *BrowserClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// FetchPage navigates to the URL and returns the rendered HTML
func (c *BrowserClient) FetchPage(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, FetchTimeout)
	defer cancel()

	var htmlContent string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(1*time.Second), // Allow JS to render
		chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery),
	)

	if err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}

	if htmlContent == "" {
		return "", fmt.Errorf("empty HTML content returned")
	}

	return htmlContent, nil
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
