package urlqueue

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// URLQueue remembers every URL handed to the crawler so each page is
// requested once, and stops accepting new URLs after MaxPages.
type URLQueue struct {
	URLs     map[string]bool
	Source   string
	MaxPages int
	mu       sync.Mutex
}

func NewURLQueue(source string, maxPages int) *URLQueue {
	return &URLQueue{
		URLs:     make(map[string]bool),
		Source:   source,
		MaxPages: maxPages,
	}
}

// Add reports whether urlStr is new and fits in the page budget.
func (q *URLQueue) Add(urlStr string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	normalized := NormalizeURL(urlStr)
	if q.URLs[normalized] {
		return false
	}
	if q.MaxPages > 0 && len(q.URLs) >= q.MaxPages {
		return false
	}
	q.URLs[normalized] = true
	return true
}

func (q *URLQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.URLs)
}

func NormalizeURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	parsed.Fragment = ""

	parsed.Host = strings.TrimPrefix(parsed.Host, "www.")

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}

	return parsed.String()
}

func ComputeContentHash(content string) string {
	hash := md5.Sum([]byte(content))
	return fmt.Sprintf("%x", hash)
}

// Patterns compiles follow/exclude URL patterns once.
type Patterns struct {
	follow  []*regexp.Regexp
	exclude []*regexp.Regexp
}

func CompilePatterns(followPatterns, excludePatterns []string) (*Patterns, error) {
	p := &Patterns{}
	for _, pattern := range followPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("follow pattern %q: %w", pattern, err)
		}
		p.follow = append(p.follow, re)
	}
	for _, pattern := range excludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		p.exclude = append(p.exclude, re)
	}
	return p, nil
}

// ShouldFollow applies exclude patterns first; with no follow patterns
// everything else is followed.
func (p *Patterns) ShouldFollow(urlStr string) bool {
	for _, re := range p.exclude {
		if re.MatchString(urlStr) {
			return false
		}
	}

	if len(p.follow) == 0 {
		return true
	}

	for _, re := range p.follow {
		if re.MatchString(urlStr) {
			return true
		}
	}

	return false
}
