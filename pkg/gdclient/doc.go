// Package gdclient provides the primary entry point for constructing a
// schema-driven REST client that implements the gdapi.Client interface.
//
// A client discovers its data model at runtime: on construction it fetches
// the server's schema document (following an API version's "schemas" link if
// needed), builds one gdapi.Type per schema element, and from then on turns
// every response body into gdapi.Value instances chosen by each object's
// "type" field.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/gdapi/pkg/gdapi"
//	  "github.com/fivetwenty-io/gdapi/pkg/gdclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := gdclient.NewWithKeys(ctx, "https://api.example.com/v1", "access", "secret")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  projects, err := cli.Type("project")
//	  if err != nil { log.Fatal(err) }
//
//	  list, err := projects.List(ctx, nil)
//	  if err != nil { log.Fatal(err) }
//
//	  for _, p := range gdapi.AsCollection(list).Resources() {
//	    log.Println(p.ID(), p.String("name"))
//	  }
//	}
//
// # Error handling
//
// By default every condition (schema failure, unknown type, disallowed
// method, non-2xx response) is returned as a *gdapi.APIError that unwraps to a
// kind such as gdapi.ErrNotFound. With gdapi.WithThrowExceptions(false) the
// error-shaped value is returned instead and the error is nil; schema
// failures still abort construction.
//
// # Caching
//
// SetCache installs a process-wide schema cache (memory, NATS JetStream KV or
// Redis, see gdapi.NewCacheFromConfig) so later clients with the same
// identity skip the schema request.
package gdclient
