// Package session provides obfuscated, per-conversation persistence for
// chat transcripts, plus the denormalized index the sidebar lists.
//
// A session is one continuous chat exchange: an ordered transcript of
// [Message] values owned by the [Store] under a single key. Alongside the
// per-session records the Store maintains a single index blob of
// [Summary] entries sorted by recency, so enumeration never loads full
// transcripts.
//
// Key operations:
//
//   - Persistence: [Store.Save], [Store.Load], [Store.Remove]
//   - Enumeration: [Store.Sessions], [GroupByDate]
//   - Lifecycle: [Store.Enter] classifies an entry attempt as new,
//     active, expired or missing
//   - Change signals: [Store.Notifications], [Bus]
//
// # Consistency
//
// Every write path that touches a session record also upserts the
// matching index entry in the same logical operation, so the set of ids
// in the index always equals the set of loadable records.
//
// # Durability
//
// Persistence is best-effort: encode or storage failures are logged and
// reported to the caller, but the chat flow treats them as "not
// persisted" rather than user-facing errors. A decode failure on read is
// indistinguishable from an absent session.
//
// # Concurrency
//
// Store methods are safe for concurrent use within one process:
// mutations are serialized internally, since the index update is a
// read-modify-write of a single blob. Two processes writing the same
// session resolve to last-writer-wins; the storage backend serializes
// individual writes.
package session
