// Package codegen generates random short codes for links created without
// an explicit one.
package codegen

import "crypto/rand"

const (
	length  = 6
	charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ShortCode returns a random 6-character alphanumeric code. It does not
// check for collisions against existing codes, and storage's Upsert does
// not report one: upserting an existing code replaces that link.
func ShortCode() string {
	raw := make([]byte, length)
	rand.Read(raw)
	code := make([]byte, length)
	for i, b := range raw {
		code[i] = charset[b%byte(len(charset))]
	}
	return string(code)
}
