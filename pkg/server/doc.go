// Package server hosts vango runtimes behind a WebSocket, one runtime per
// connection.
//
// # Routes
//
//   - GET /             host page with a server-rendered snapshot
//   - GET {WSPath}      websocket endpoint (default /_vango/live)
//   - GET /healthz      JSON liveness with the session count
//   - GET /metrics      Prometheus metrics, when EnableMetrics is set
//   - GET /_vango/client.js  ServerConfig.ClientScript, when set
//
// # Session Lifecycle
//
// The client opens the socket and sends a Handshake frame carrying a
// ClientHello. The server checks the protocol version, picks the codec the
// client asked for (or the configured default), and answers with a
// ServerHello. From then on:
//
//	client                        server
//	  |  Event(seq, id, name, data) ->   read loop -> event queue
//	  |                                  host loop: Dispatch, RenderImmediate
//	  |  <- Mutations(batch seq n)       templates sent once per connection
//	  |  Ack(n) ->
//	  |  <- Control(Ping) / Pong ->      heartbeat
//
// Each session runs an errgroup of two loops. The read loop decodes frames,
// answers pings, records acks and queues events. The host loop owns the
// runtime: it sends the initial build, then after each burst of events or
// each task completion it renders and sends one batch. Batches above
// SessionConfig.CompressThreshold are zstd-compressed.
//
// The first batch builds the application under element 0, which the client
// maps to the mount container. The client clears the server-rendered snapshot
// before applying it.
//
// A fatal runtime error is sent as a fatal Error frame followed by a Close
// control frame. Shutdown sends Close(ServerShutdown) to every session.
//
// # Example Usage
//
//	srv := server.New(server.Mount(demo.App, demo.Props{}), &server.ServerConfig{
//	    Address:       ":8080",
//	    EnableMetrics: true,
//	})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
