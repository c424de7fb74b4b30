// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns such as
// request IDs, request logging, New Relic tracing, relay metrics,
// CORS and panic recovery.
package middleware
