// Package appclient is the entry point for calling the app plane gateway.
//
// A Client wraps one resolved appplane.Config. Every call is placed under
// the gateway's /app prefix, carries the configured credentials and a
// request ID, and is retried only when no response arrived and the call is
// safe to repeat.
//
// Quick start
//
//	cfg, err := appplane.Resolve(appplane.OSEnvironment(),
//	  appplane.WithBaseURL("https://gateway.example.com"),
//	  appplane.WithMaxRetries(2))
//	if err != nil { log.Fatal(err) }
//
//	cli, err := appclient.New(cfg, appclient.WithLogger(appplane.NewTextLogger(os.Stderr, "info")))
//	if err != nil { log.Fatal(err) }
//
//	widget, err := appclient.Do[Widget](ctx, cli, http.MethodGet, "/widgets/42")
//	if problem, ok := appplane.AsProblem(err); ok && problem.Kind == appplane.KindAuth {
//	  // refresh credentials
//	}
//
// # Writes and idempotency
//
// POST, PUT, PATCH and DELETE are retried only under an idempotency key.
// When retries are enabled and the caller did not pass WithIdempotencyKey,
// a key is generated once and reused on every attempt.
//
// # Listings
//
// Paginate and CollectAll follow next_page_token cursors:
//
//	for w, err := range appclient.Paginate[Widget](ctx, cli, "/widgets").All() {
//	  if err != nil { return err }
//	  fmt.Println(w.ID)
//	}
package appclient
