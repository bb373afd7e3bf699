// Package appplane provides the configuration, error, response and
// pagination types shared by clients of the app plane gateway.
//
// # Overview
//
// Every call a client makes goes through the same pipeline: a logical path
// is placed under the gateway's /app prefix, default and caller headers are
// merged, the request is sent with bounded timeouts and a bounded retry
// budget, and the outcome is either a buffered Response or a *Problem.
// The concrete client lives in the appclient package; this package holds
// the types callers branch on.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/appplane-client/pkg/appclient"
//	  "github.com/fivetwenty-io/appplane-client/pkg/appplane"
//	)
//
//	func example() {
//	  cfg, err := appplane.Resolve(appplane.OSEnvironment(),
//	    appplane.WithBaseURL("https://gateway.example.com"))
//	  if err != nil { log.Fatal(err) }
//
//	  cli, err := appclient.New(cfg)
//	  if err != nil { log.Fatal(err) }
//
//	  resp, err := cli.Get(context.Background(), "/items")
//	  if err != nil { log.Fatal(err) }
//	  _ = resp
//	}
//
// # Configuration
//
// Resolve merges explicit options, then APP_PLANE_* environment variables,
// then fallbacks. The Environment is injected so tests never touch process
// state. Tokens are masked whenever a Config is printed.
//
// # Errors
//
// All failures surface as *Problem. Gateway problems are decoded from the
// canonical envelope or from RFC 7807 documents. Problems raised by the
// client itself have Local set. Helpers such as IsAuthFailure, IsTimeout
// and IsNotFound branch on the common cases.
//
// # Pagination
//
// Paginator walks cursor-paginated listings lazily, fetching the next page
// only when the current one is exhausted:
//
//	for item, err := range appplane.Iterate(ctx, fetch) {
//	  if err != nil { break }
//	  _ = item
//	}
//
// # Caching and metrics
//
// GET responses can be cached in memory, in a NATS key-value bucket, or in
// both through a CacheChain. MetricsCollector exports call counts,
// latencies, retries and problems to Prometheus.
package appplane
