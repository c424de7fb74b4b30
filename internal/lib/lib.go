// Package lib groups libraries that do not fit strictly into the
// handler, service or server layers.
//
// upstream is the HTTP client for the package repository, with its
// circuit breaker; utils holds small shared helpers.
package lib
