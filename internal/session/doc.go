// Package session is the only reader and writer of visitor credentials.
//
// The visitor cookie carries an opaque id and flash messages; the backend
// token and cached user record live in a domain.CredentialRepository keyed
// by that id. Expiry is never checked locally: the backend answers 401 and
// the gateway calls Clear.
package session
