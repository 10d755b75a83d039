// Package explorerclient provides the primary entry point for constructing a
// blockchain explorer client that implements the explorer.Client interface.
//
// It layers configuration, HTTP transport, the query cache and transport
// interceptors on top of the resources and query machinery defined in the
// explorer package. Most applications should import explorerclient to build
// a client, then use the returned explorer.Client for typed accessors such as
// Stats(), Tokens() or Address(), or for name based queries.
//
// Quick start
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
//
//	  // Minimal: just an API endpoint.
//	  cli, err := explorerclient.NewWithEndpoint(ctx, "explorer.example.com")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // Or with a shared redis cache for several chains:
//	  cli, err = explorerclient.New(ctx, &explorer.Config{
//	    APIEndpoint: "https://explorer.example.com",
//	    ChainSlug:   "mainnet",
//	    Cache: &explorer.CacheConfig{
//	      Type:  explorer.CacheTypeRedis,
//	      Redis: &explorer.RedisCacheConfig{Addr: "localhost:6379"},
//	      L1:    true,
//	    },
//	  })
//
//	  stats, err := cli.Stats(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = stats
//	}
//
// Endpoint handling
//
// New normalizes APIEndpoint by trimming a trailing slash and prepending
// "https://" when no scheme is present.
package explorerclient
