package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mintlabs/mintguard/internal/config"
	"github.com/mintlabs/mintguard/internal/fetch"
	"github.com/mintlabs/mintguard/internal/retry"
)

// Client is one provider endpoint the aggregator can query.
type Client interface {
	Source() Source
	Fetch(ctx context.Context, mint string) (*fetch.Response, error)
}

// httpSource queries a provider over HTTP. The fetch client decides whether
// transient failures are retried; every non-primary source is configured
// single-shot.
type httpSource struct {
	source  Source
	urlFor  func(mint string) string
	headers map[string]string
	client  *fetch.Client
}

func (s *httpSource) Source() Source { return s.source }

func (s *httpSource) Fetch(ctx context.Context, mint string) (*fetch.Response, error) {
	return s.client.FetchJSON(ctx, s.urlFor(mint), s.headers)
}

// singleShot builds a fetch client that makes exactly one attempt.
func singleShot(cfg *config.Config) *fetch.Client {
	return fetch.New(
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithMaxRetries(0),
	)
}

func joinURL(base string, path string) string {
	return strings.TrimRight(base, "/") + path
}

// NewRugcheck creates the primary client. Transient failures (429, 5xx,
// timeouts) are retried with backoff before the aggregator classifies them.
func NewRugcheck(cfg *config.Config) Client {
	fc := fetch.New(
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithMaxRetries(cfg.FetchMaxRetries),
		fetch.WithBackoff(retry.NewBackoff(cfg.FetchBackoffBase)),
	)
	return &httpSource{
		source: SourceRugcheck,
		urlFor: func(mint string) string {
			return joinURL(cfg.RugcheckURL, fmt.Sprintf("/tokens/%s/report", url.PathEscape(mint)))
		},
		client: fc,
	}
}

// NewBirdeye creates the Birdeye token-overview client.
func NewBirdeye(cfg *config.Config) Client {
	headers := map[string]string{}
	if cfg.BirdeyeAPIKey != "" {
		headers["X-API-KEY"] = cfg.BirdeyeAPIKey
	}
	return &httpSource{
		source: SourceBirdeye,
		urlFor: func(mint string) string {
			return joinURL(cfg.BirdeyeURL, "/defi/token_overview?address="+url.QueryEscape(mint))
		},
		headers: headers,
		client:  singleShot(cfg),
	}
}

// NewDexscreener creates the DexScreener pairs client.
func NewDexscreener(cfg *config.Config) Client {
	return &httpSource{
		source: SourceDexscreener,
		urlFor: func(mint string) string {
			return joinURL(cfg.DexscreenerURL, "/latest/dex/tokens/"+url.PathEscape(mint))
		},
		client: singleShot(cfg),
	}
}

// NewHelius creates the Helius token-metadata client.
func NewHelius(cfg *config.Config) Client {
	return &httpSource{
		source: SourceHelius,
		urlFor: func(mint string) string {
			q := url.Values{}
			q.Set("api-key", cfg.HeliusAPIKey)
			q.Set("mint", mint)
			return joinURL(cfg.HeliusURL, "/token-metadata?"+q.Encode())
		},
		client: singleShot(cfg),
	}
}

// DefaultClients returns all provider clients in aggregation order,
// primary first.
func DefaultClients(cfg *config.Config) []Client {
	return []Client{
		NewRugcheck(cfg),
		NewBirdeye(cfg),
		NewDexscreener(cfg),
		NewHelius(cfg),
	}
}
