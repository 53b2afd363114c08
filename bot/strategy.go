package bot

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// beatenBy lists, for each play, the two plays that beat it
var beatenBy = map[protocol.Play][2]protocol.Play{
	protocol.Rock:     {protocol.Paper, protocol.Spock},
	protocol.Paper:    {protocol.Scissors, protocol.Lizard},
	protocol.Scissors: {protocol.Rock, protocol.Spock},
	protocol.Lizard:   {protocol.Rock, protocol.Scissors},
	protocol.Spock:    {protocol.Paper, protocol.Lizard},
}

// Strategy picks the next play from the current state
type Strategy interface {
	Name() string
	Next(state engine.State) protocol.Play
}

// Random plays uniformly at random
type Random struct {
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{rng: rng}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Next(engine.State) protocol.Play {
	plays := protocol.Plays()
	return plays[r.rng.IntN(len(plays))]
}

// Counter plays something that beats the opponent's last play, assuming
// they repeat it. With nothing to counter it plays at random.
type Counter struct {
	random *Random
}

func NewCounter(rng *rand.Rand) *Counter {
	return &Counter{random: NewRandom(rng)}
}

func (c *Counter) Name() string { return "counter" }

func (c *Counter) Next(state engine.State) protocol.Play {
	options, ok := beatenBy[state.TheirPlay]
	if !ok {
		return c.random.Next(state)
	}
	return options[c.random.rng.IntN(len(options))]
}

// Cycle walks through the plays in order
type Cycle struct {
	next int
}

func (c *Cycle) Name() string { return "cycle" }

func (c *Cycle) Next(engine.State) protocol.Play {
	plays := protocol.Plays()
	play := plays[c.next%len(plays)]
	c.next++
	return play
}

// Strategies lists the names NewStrategy accepts
func Strategies() []string {
	return []string{"random", "counter", "cycle"}
}

// NewStrategy returns the named strategy
func NewStrategy(name string, rng *rand.Rand) (Strategy, error) {
	switch name {
	case "random":
		return NewRandom(rng), nil
	case "counter", "":
		return NewCounter(rng), nil
	case "cycle":
		return &Cycle{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
