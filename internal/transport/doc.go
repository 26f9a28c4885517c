// Package transport is the only path between services.
//
// A Client issues Call (request–reply) and Emit (fire-and-forget) against named
// durable queues. A Server owns one service queue and dispatches each incoming
// envelope through an explicit pattern table. Both sit on a Bus, which is either
// Kafka (one single-partition topic per queue) or an in-process MemoryBus.
//
// Calls have no server-side cancellation. When Call returns a timeout the
// remote handler may still run to completion, so only idempotent operations
// should be retried by the caller.
package transport
