// Package explorer provides the typed resource and query layer of the
// blockchain explorer.
//
// # Overview
//
// Resources are declared as data: a ResourceDescriptor names an endpoint
// template, its path parameters, the query fields it accepts and whether it
// is cursor paginated. Define pairs a descriptor with the Go type of its
// canonical payload and optional hooks. The package declares the explorer
// resources (Stats, Blocks, Tokens, ...) and DefaultRegistry collects them.
// The explorerclient package wires configuration, transport and cache into a
// ready to use Client.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
//	  "github.com/hello-xone/xone-explorer-sub000/pkg/explorerclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := explorerclient.New(ctx, &explorer.Config{APIEndpoint: "https://explorer.example.com"})
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  stats, err := cli.Stats(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = stats
//	}
//
// # Queries and caching
//
// Every query is keyed by resource, chain discriminator and parameters.
// Concurrent queries with equal keys share one dispatch. Single-page results
// are refetched unless WithStaleTime allows reuse; pages reached through a
// cursor stay cached until their listing is reset.
//
//	res, err := cli.Query(ctx, "address", map[string]string{"hash": addr}, nil,
//	  explorer.WithStaleTime(30*time.Second))
//
// # Pagination
//
// Paginated resources are walked with a PaginationSession, or its typed
// form Pager. A page's cursor is only known once the previous page has been
// fetched, so sessions move one page at a time:
//
//	pager, err := cli.Tokens(url.Values{"type": {"ERC-20"}})
//	if err != nil { /* handle error */ }
//	defer pager.Dispose()
//
//	page, err := pager.Load(ctx)
//	for err == nil && page.HasNextPage {
//	  page, err = pager.Next(ctx)
//	}
//
// FetchAllPages and PageIterator follow every cursor of a listing without a
// session.
//
// # Interceptors
//
// A resource may declare a Transform, converting the raw response into its
// canonical payload, and an Interceptor, which patches the canonical payload
// using secondary requests. Interceptor failures are logged and the
// unmodified payload is returned. Transport concerns (headers, request ids,
// logging, metrics, circuit breaking) run in an InterceptorChain around the
// Dispatcher.
package explorer
