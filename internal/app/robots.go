package app

import (
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsPolicy loads robots.txt once per host and answers whether the
// configured user agent may fetch a URL. Hosts whose robots.txt cannot be
// loaded are allowed.
type robotsPolicy struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	hosts map[string]*hostRobots
}

// hostRobots is filled once; the policy lock is not held while fetching.
type hostRobots struct {
	once  sync.Once
	group *robotstxt.Group
}

func newRobotsPolicy(client *http.Client, userAgent string) *robotsPolicy {
	return &robotsPolicy{
		client:    client,
		userAgent: userAgent,
		hosts:     make(map[string]*hostRobots),
	}
}

func (p *robotsPolicy) Allowed(u *url.URL) bool {
	group := p.group(u)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func (p *robotsPolicy) group(u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	p.mu.Lock()
	host, ok := p.hosts[key]
	if !ok {
		host = &hostRobots{}
		p.hosts[key] = host
	}
	p.mu.Unlock()

	host.once.Do(func() {
		host.group = p.load(key + "/robots.txt")
	})
	return host.group
}

func (p *robotsPolicy) load(robotsURL string) *robotstxt.Group {
	log.Printf("Loading robots.txt: %s", robotsURL)
	resp, err := p.client.Get(robotsURL)
	if err != nil {
		log.Printf("Failed to load robots.txt (ignored): %v", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Printf("Failed to parse robots.txt (ignored): %v", err)
		return nil
	}
	return data.FindGroup(p.userAgent)
}
