// Package protocol carries a runtime's edit stream to a remote renderer and
// the renderer's events back.
//
// # Wire Format
//
// All messages are framed with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// Payloads at or above the session's threshold are zstd compressed and carry
// FlagCompressed.
//
// # Frame Types
//
//   - FrameHandshake (0x00): ClientHello and ServerHello
//   - FrameEvent (0x01): renderer → host events
//   - FrameMutations (0x02): host → renderer batches
//   - FrameControl (0x03): ping, pong, close
//   - FrameAck (0x04): batch acknowledgment
//   - FrameError (0x05): error message
//
// # Batches
//
// A Batch is one render cycle. Templates travel by value the first time a
// session uses them (TemplateCache) and by fingerprint afterwards. The
// renderer side is a Replayer, which rebuilds templates and replays edits onto
// any vdom.MutationSink, for example a render.Document.
//
// # Codecs
//
// Batches and events are serialized by a Codec negotiated in the handshake:
//
//   - binary: varints and length-prefixed strings, no reflection
//   - cbor: deterministic CBOR with integer keys
//
// Handshake, control, ack and error payloads always use the binary layout.
//
// # Handshake
//
//	Renderer                        Host
//	  │                                │
//	  │──── ClientHello ─────────────>│
//	  │     (version, codec)          │
//	  │                                │
//	  │<──── ServerHello ─────────────│
//	  │     (status, codec, session)  │
//	  │                                │
//	  │<──── Mutations (seq 1) ───────│
//	  │──── Ack (1) ─────────────────>│
package protocol
