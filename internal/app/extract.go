package app

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"schema_spider/internal/config"
	"schema_spider/internal/item"
	"schema_spider/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reBlockOpen  = regexp.MustCompile(`<(div|p|br|li|td|tr|h[1-6])([\s>/])`)
	reBlockClose = regexp.MustCompile(`</(div|p|li|td|tr|h[1-6])>`)
	reNumber     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// Page is a fetched HTML page. Its readability article is extracted on
// first use and shared by every item found on the page.
type Page struct {
	URL         *url.URL
	Body        []byte
	ContentType string

	once    sync.Once
	article *models.ExtractedArticle
	err     error
}

func NewPage(pageURL *url.URL, body []byte, contentType string) *Page {
	return &Page{URL: pageURL, Body: body, ContentType: contentType}
}

func (p *Page) Article() (*models.ExtractedArticle, error) {
	p.once.Do(func() {
		p.article, p.err = extractContent(p.Body, p.ContentType, p.URL)
	})
	return p.article, p.err
}

func extractContent(body []byte, contentType string, pageURL *url.URL) (*models.ExtractedArticle, error) {
	var reader io.Reader = bytes.NewReader(body)
	if utf8Reader, err := charset.NewReader(reader, contentType); err == nil {
		reader = utf8Reader
	}

	article, err := readability.FromReader(reader, pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(addSpacesBeforeParsing(article.Content)))
	if err != nil {
		return nil, err
	}

	return &models.ExtractedArticle{
		Title:   article.Title,
		Text:    normalizeText(doc.Text()),
		HTML:    article.Content,
		Excerpt: article.Excerpt,
	}, nil
}

func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// addSpacesBeforeParsing keeps words of adjacent block elements apart in
// the extracted text.
func addSpacesBeforeParsing(html string) string {
	html = reBlockOpen.ReplaceAllString(html, " <$1$2")
	return reBlockClose.ReplaceAllString(html, "</$1> ")
}

// ExtractItem fills an item of typ from the element sel. Fields whose
// selector matches nothing are left unset. Every field that fails is
// reported and skipped.
func ExtractItem(typ *item.Type, sel *goquery.Selection, page *Page, fields map[string]config.FieldConfig) (*item.Item, []error) {
	it := item.NewItem(typ)
	var errs []error

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, found, err := fieldValue(sel, page, fields[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", name, err))
			continue
		}
		if !found {
			continue
		}
		if err := it.Set(name, value); err != nil {
			errs = append(errs, err)
		}
	}
	return it, errs
}

func fieldValue(sel *goquery.Selection, page *Page, f config.FieldConfig) (any, bool, error) {
	if f.Kind == "readability" {
		return articleValue(page, f.Attr)
	}

	target := sel
	if f.Selector != "" {
		target = sel.Find(f.Selector)
	}
	if target.Length() == 0 {
		return nil, false, nil
	}

	if f.Kind == "list" {
		var values []any
		target.Each(func(_ int, s *goquery.Selection) {
			if text := normalizeText(s.Text()); text != "" {
				values = append(values, text)
			}
		})
		return values, len(values) > 0, nil
	}

	first := target.First()
	switch f.Kind {
	case "", "text":
		return normalizeText(first.Text()), true, nil
	case "html":
		html, err := first.Html()
		if err != nil {
			return nil, false, err
		}
		return strings.TrimSpace(html), true, nil
	case "attr":
		v, ok := first.Attr(f.Attr)
		return strings.TrimSpace(v), ok, nil
	case "url":
		attr := f.Attr
		if attr == "" {
			attr = "href"
		}
		v, ok := first.Attr(attr)
		if !ok {
			return nil, false, nil
		}
		return resolveURL(page, strings.TrimSpace(v))
	case "int":
		n, err := parseInt(first.Text())
		return n, err == nil, err
	case "float":
		n, err := parseFloat(first.Text())
		return n, err == nil, err
	}
	return nil, false, fmt.Errorf("unknown kind %q", f.Kind)
}

func articleValue(page *Page, part string) (any, bool, error) {
	if page == nil {
		return nil, false, fmt.Errorf("no page to extract from")
	}
	article, err := page.Article()
	if err != nil {
		return nil, false, err
	}
	var v string
	switch part {
	case "", "text":
		v = article.Text
	case "title":
		v = article.Title
	case "excerpt":
		v = article.Excerpt
	case "html":
		v = article.HTML
	default:
		return nil, false, fmt.Errorf("unknown article part %q", part)
	}
	return v, v != "", nil
}

func resolveURL(page *Page, ref string) (any, bool, error) {
	if ref == "" {
		return nil, false, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, false, err
	}
	if page != nil && page.URL != nil {
		u = page.URL.ResolveReference(u)
	}
	return u.String(), true, nil
}

func numberText(text string) (string, error) {
	cleaned := strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(text)
	m := reNumber.FindString(cleaned)
	if m == "" {
		return "", fmt.Errorf("no number in %q", normalizeText(text))
	}
	return m, nil
}

func parseInt(text string) (int64, error) {
	m, err := numberText(text)
	if err != nil {
		return 0, err
	}
	if strings.Contains(m, ".") {
		return 0, fmt.Errorf("%s is not an integer", m)
	}
	return strconv.ParseInt(m, 10, 64)
}

func parseFloat(text string) (float64, error) {
	m, err := numberText(text)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(m, 64)
}
