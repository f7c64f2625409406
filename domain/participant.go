// Package domain contains core concepts of the chat system.
// This file defines the identity of a live connection.
// No runtime, network, or UI logic should be added here.
package domain

// ConnectionID identifies one live client connection.
// A user may hold several connections at once.
type ConnectionID string
