// Package handler is the HTTP layer that sits right after the router.
//
// It binds path parameters, validates them through the validation
// package, calls the service layer and writes the response, either
// JSON or the relayed upstream bytes.
package handler
