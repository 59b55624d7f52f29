package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
)

// resourceTypes maps config names to CDP resource types.
var resourceTypes = map[string]network.ResourceType{
	"document":    network.ResourceTypeDocument,
	"stylesheet":  network.ResourceTypeStylesheet,
	"image":       network.ResourceTypeImage,
	"media":       network.ResourceTypeMedia,
	"font":        network.ResourceTypeFont,
	"script":      network.ResourceTypeScript,
	"texttrack":   network.ResourceTypeTextTrack,
	"xhr":         network.ResourceTypeXHR,
	"fetch":       network.ResourceTypeFetch,
	"eventsource": network.ResourceTypeEventSource,
	"websocket":   network.ResourceTypeWebSocket,
	"manifest":    network.ResourceTypeManifest,
	"other":       network.ResourceTypeOther,
}

// resourceFilter decides which intercepted requests are aborted.
type resourceFilter struct {
	blocked map[network.ResourceType]bool
}

func newResourceFilter(names []string) (*resourceFilter, error) {
	f := &resourceFilter{blocked: make(map[network.ResourceType]bool, len(names))}
	for _, name := range names {
		rt, ok := resourceTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown resource type %q", name)
		}
		f.blocked[rt] = true
	}
	return f, nil
}

func (f *resourceFilter) empty() bool { return len(f.blocked) == 0 }

// blocks reports whether a request of type rt should be aborted.
func (f *resourceFilter) blocks(rt network.ResourceType) bool {
	return f.blocked[rt]
}

// patterns returns one interception pattern per blocked type so that
// requests of any other type are never paused.
func (f *resourceFilter) patterns() []*fetch.RequestPattern {
	out := make([]*fetch.RequestPattern, 0, len(f.blocked))
	for rt := range f.blocked {
		out = append(out, &fetch.RequestPattern{
			URLPattern:   "*",
			ResourceType: rt,
			RequestStage: fetch.RequestStageRequest,
		})
	}
	return out
}
