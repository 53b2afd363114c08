// Package websocket provides the WebSocket transports of the RPSLS client.
//
// The websocket package implements:
//   - Conn, the single duplex connection to the game server
//   - Handshake-first ordering of outbound messages
//   - Newline-batched push decoding delivered in arrival order
//   - Clean versus unclean close classification
//   - Hub, a local observer fan-out of derived game state
//
// Server Connection:
//
// A Conn is opened exactly once. Open dials the server and writes the
// handshake message before the write pump starts, so no play can overtake
// it. Pushes are decoded field by field and delivered on the Pushes
// channel; a frame that is not a JSON object is delivered as an empty push
// and logged. When the peer closes with a normal or going-away frame the
// connection is clean, any other read failure is unclean. Either way the
// Pushes channel is closed and nothing reconnects.
//
// Usage:
//
//	conn := websocket.NewConn(websocket.DefaultConfig("wss://rpsls.example/ws"),
//		websocket.WithLogger(logger))
//	if err := conn.Open(ctx, protocol.NewGameMessage(userID)); err != nil {
//		return err
//	}
//	for push := range conn.Pushes() {
//		...
//	}
//
// Observers:
//
// The Hub serves local viewers (GET /ws on the control API). Every state
// change is broadcast as {"event":"state","state":{...},"status":"..."};
// a newly connected observer receives the newest snapshot at once. Observer
// input is ignored.
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Concurrency:
//
// Each connection runs one reader and one writer goroutine. The hub keeps
// its client set on the Run goroutine only.
package websocket
