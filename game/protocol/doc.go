// Package protocol defines the wire messages exchanged with the RPSLS game server.
//
// The protocol package implements:
//   - Outbound player messages (new, join, play) and their required fields
//   - Inbound state pushes where every field is independently optional
//   - The play enum (rock, paper, scissors, lizard, spock)
//
// Message Protocol:
//
// Outbound messages are single JSON objects discriminated by "action":
//
//	{"action":"new","userId":"u1"}
//	{"action":"join","userId":"u1","gameId":"ABCDE"}
//	{"action":"play","userId":"u1","gameId":"ABCDE","round":3,"play":"spock"}
//
// Inbound pushes carry no action tag. Any subset of gameId, round,
// roundSummary, yourScore, yourPlay, theirScore, theirPlay and winner may be
// present, and an empty object is a legal no-op push:
//
//	{"round":2,"gameId":"ABCDE","yourScore":1,"theirScore":0,
//	 "yourPlay":"rock","theirPlay":"lizard","roundSummary":"rock crushes lizard"}
//
// Decoding:
//
// DecodePush decodes field by field. A field with the wrong JSON type is
// dropped on its own; the rest of the push is kept.
package protocol
