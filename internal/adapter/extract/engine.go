// Package extract projects rendered HTML into search candidates and page
// details. Everything here is a pure function of the markup.
package extract

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Engine describes how to query one search engine and where its listing
// keeps each part of a result.
type Engine struct {
	Name string
	// Endpoint is the search URL without query parameters.
	Endpoint string
	// QueryParam carries the encoded query.
	QueryParam string
	// CountParam, when set, asks the engine for at least max results.
	CountParam string

	ResultSelector  string
	TitleSelector   string
	LinkSelector    string
	SnippetSelector string
	// SkipSelector marks result containers that are ads or widgets.
	SkipSelector string
	// RedirectParams lists query parameters that carry the real target of
	// an engine redirect link.
	RedirectParams []string
}

// DuckDuckGo targets the JavaScript-free HTML endpoint.
var DuckDuckGo = Engine{
	Name:            "duckduckgo",
	Endpoint:        "https://html.duckduckgo.com/html/",
	QueryParam:      "q",
	ResultSelector:  "div.result",
	TitleSelector:   "a.result__a",
	LinkSelector:    "a.result__a",
	SnippetSelector: ".result__snippet",
	SkipSelector:    ".result--ad",
	RedirectParams:  []string{"uddg"},
}

// Google targets the standard results page.
var Google = Engine{
	Name:            "google",
	Endpoint:        "https://www.google.com/search",
	QueryParam:      "q",
	CountParam:      "num",
	ResultSelector:  "div.g",
	TitleSelector:   "h3",
	LinkSelector:    "a[href]",
	SnippetSelector: ".VwiC3b, .IsZvec, div[data-sncf]",
	RedirectParams:  []string{"q", "url"},
}

var engines = map[string]Engine{
	DuckDuckGo.Name: DuckDuckGo,
	Google.Name:     Google,
}

// EngineByName returns the named engine profile.
func EngineByName(name string) (Engine, error) {
	e, ok := engines[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Engine{}, fmt.Errorf("unknown search engine %q", name)
	}
	return e, nil
}

// BuildURL returns the listing URL for an already scoped query.
func (e Engine) BuildURL(query string, max int) string {
	v := url.Values{}
	v.Set(e.QueryParam, query)
	if e.CountParam != "" && max > 0 {
		v.Set(e.CountParam, strconv.Itoa(max))
	}
	return e.Endpoint + "?" + v.Encode()
}

// resolveLink turns a listing href into an absolute target URL. Relative
// links resolve against the endpoint and engine redirect links are unwrapped.
func (e Engine) resolveLink(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	base, err := url.Parse(e.Endpoint)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)

	if sameSite(abs.Host, base.Host) {
		q := abs.Query()
		for _, p := range e.RedirectParams {
			target := q.Get(p)
			if target == "" {
				continue
			}
			if t, err := url.Parse(target); err == nil && (t.Scheme == "http" || t.Scheme == "https") && t.Host != "" {
				return t.String(), true
			}
		}
	}

	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

func sameSite(host, engineHost string) bool {
	root := registrable(engineHost)
	return host == engineHost || host == root || strings.HasSuffix(host, "."+root)
}

// registrable drops the first label of host ("html.duckduckgo.com" ->
// "duckduckgo.com"). Two-label hosts are returned unchanged.
func registrable(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[1:], ".")
}
