// Package wsclient supervises one long-lived WebSocket session: dialing,
// reconnecting with backoff, a bounded outbound queue that survives
// reconnects in order, pending-acknowledgement matching, and a heartbeat
// watchdog that detects a silently dead connection.
package wsclient
