// Package events defines the topics and payloads exchanged between the
// selection engine and the grid that hosts it.
package events
