// Package webhooks signs outgoing hook deliveries and verifies them on the
// receiving side.
//
// A listener opts into signing by storing a secret in its config. The
// signature is an HMAC-SHA256 of the delivered body, sent in a single
// header, and the delivery request id travels as Idempotency-Key so
// receivers can drop retried duplicates.
package webhooks
