package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
)

// API is the part of the control API the bot needs
type API interface {
	GetState(ctx context.Context) (engine.State, error)
	Play(ctx context.Context, play protocol.Play) (bool, error)
}

// Result summarizes a finished run
type Result struct {
	Plays      int
	YourScore  int
	TheirScore int
}

// Bot plays one play per round until MaxPlays is reached or ctx is done
type Bot struct {
	api      API
	strategy Strategy
	interval time.Duration
	maxPlays int
	logger   zerolog.Logger
}

// New creates a bot polling api every interval. maxPlays of 0 means no
// limit.
func New(api API, strategy Strategy, interval time.Duration, maxPlays int, logger zerolog.Logger) *Bot {
	if interval <= 0 {
		interval = time.Second
	}
	return &Bot{
		api:      api,
		strategy: strategy,
		interval: interval,
		maxPlays: maxPlays,
		logger:   logger,
	}
}

// Run polls the game and plays whenever a new round is open. Poll errors
// are logged and retried; a cancelled ctx ends the run without error.
func (b *Bot) Run(ctx context.Context) (Result, error) {
	var result Result
	playedRound := -1

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		state, err := b.api.GetState(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return result, nil
			}
			b.logger.Warn().Err(err).Msg("failed to read game state")
		} else {
			result.YourScore = state.YourScore
			result.TheirScore = state.TheirScore

			if b.ready(state, playedRound) {
				play := b.strategy.Next(state)
				accepted, err := b.api.Play(ctx, play)
				switch {
				case err != nil && ctx.Err() != nil:
					return result, nil
				case err != nil:
					b.logger.Warn().Err(err).Str("play", play.String()).Msg("play failed")
				case accepted:
					playedRound = state.Round
					result.Plays++
					b.logger.Info().
						Int("round", state.Round).
						Str("play", play.String()).
						Str("strategy", b.strategy.Name()).
						Int("your_score", state.YourScore).
						Int("their_score", state.TheirScore).
						Msg("played")
				default:
					b.logger.Debug().Int("round", state.Round).Msg("play not accepted")
				}
			}

			if b.maxPlays > 0 && result.Plays >= b.maxPlays {
				return result, nil
			}
		}

		select {
		case <-ctx.Done():
			return result, nil
		case <-ticker.C:
		}
	}
}

// ready reports whether a new round is open for a play
func (b *Bot) ready(state engine.State, playedRound int) bool {
	if state.GameID == "" || state.Locked {
		return false
	}
	return state.Round > playedRound
}
