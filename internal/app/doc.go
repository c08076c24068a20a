// Package app holds the portal's background work and shared read models.
//
// StatusPoller keeps the latest server status overview and pushes it to live
// subscribers; Rotation picks the server shown on the home page card. HTTP
// handlers read from both and never poll the backend for status themselves.
package app
