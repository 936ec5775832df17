// Package webhook implements the HTTP surface of the relay: a single POST
// endpoint that verifies HMAC-SHA1 signatures over the raw request body,
// extracts a chat-message event from one of several payload shapes Kommo
// sends, classifies it, and hands eligible events to the relay pipeline.
//
// # Security Model
//
// - HMAC-SHA1 signatures verified using crypto/subtle (constant-time comparison)
// - Body size limits enforced to prevent DoS attacks
// - No signature details leaked in error responses (always generic 403)
// - Request logging excludes payload bodies
//
// # Request Flow
//
//  1. HTTP POST arrives at /webhook
//  2. Body size checked (reject with 413 if too large)
//  3. X-Signature header verified against HMAC-SHA1 of the raw body
//  4. Event extracted (form-encoded or JSON, first matching shape wins)
//  5. Ineligible events acknowledged with 200 and a reason
//  6. Eligible events relayed: analysis call, note written back to the CRM
//
// # Error Responses
//
// - 400 Bad Request: body could not be parsed
// - 403 Forbidden: invalid or missing signature (no details)
// - 413 Payload Too Large: body exceeds max_body_size
// - 500 Internal Server Error: analysis or note write failed
package webhook
