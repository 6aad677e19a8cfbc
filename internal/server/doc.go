// Package server hosts the Fiber HTTP service and request middleware chain.
// It stays a thin shell: handlers parse identifiers, delegate to hub.Services,
// translate error categories to status codes, and set cache headers depending
// on whether the requested ref is immutable. Keep exports narrow and accept
// explicit dependencies so tests can inject fakes.
package server
