// Package bot plays a game automatically through a running client's
// control API.
//
// The bot package implements:
//   - HTTP client for the state and play endpoints
//   - Play strategies (random, counter, cycle)
//   - A polling loop that submits one play per round
//
// Usage:
//
//	strategy, _ := bot.NewStrategy("counter", nil)
//	b := bot.New(bot.NewClient("http://127.0.0.1:8090"), strategy, time.Second, 10, logger)
//	result, err := b.Run(ctx)
//
// A round is open when the game has an id, no play is outstanding and the
// round number is past the last one the bot played in.
package bot
