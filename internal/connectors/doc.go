// Package connectors holds the clients that fetch raw payloads from remote
// sources. Each subpackage implements one driven port against one service.
package connectors
