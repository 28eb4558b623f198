// Package relay hosts the real-time relay and presence engine: persistent
// client connections, room membership, message fan-out backed by a durable
// log, and eviction of connections that vanish without a clean disconnect.
package relay
