// Package fetch is the HTTP adapter the chat widget uses for every backend call.
//
// It adds a JSON Content-Type, sends each call once, and converts failed
// responses into *HTTPError with a human-readable message. Do follows
// redirects and judges the final response; as a RoundTripper it leaves
// redirects to the client or proxy above it. Transport failures are returned
// unchanged; retry policy belongs to the caller.
package fetch
