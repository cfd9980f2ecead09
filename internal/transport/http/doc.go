// Package http contains the chi HTTP handlers of the API surface. Handlers
// stay thin: parameter extraction, service call, render. All error responses
// go through the shared error handler so payload shape stays uniform.
package http
