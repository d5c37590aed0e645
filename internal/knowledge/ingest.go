package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/mbarros/escuta/internal/storage"
)

const urlFetchTimeout = 30 * time.Second

// IngestPDF extracts the plain text of a PDF file and stores it.
func (b *Base) IngestPDF(path string) (storage.KnowledgeDoc, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("reading pdf text: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b.IngestText(title, buf.String(), "pdf:"+filepath.Base(path))
}

// IngestURL fetches a web page, strips markup and stores the text.
func (b *Base) IngestURL(ctx context.Context, url string) (storage.KnowledgeDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, urlFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return storage.KnowledgeDoc{}, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("parsing html: %w", err)
	}

	title, text := extractHTML(root)
	if title == "" {
		title = url
	}
	return b.IngestText(title, text, "url:"+url)
}

// extractHTML walks the parse tree collecting visible text, skipping
// script and style subtrees, and captures the page title.
func extractHTML(root *html.Node) (title, text string) {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return title, strings.TrimSpace(sb.String())
}
