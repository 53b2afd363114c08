package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlay(t *testing.T) {
	tests := []struct {
		in      string
		want    Play
		wantErr bool
	}{
		{"rock", Rock, false},
		{"Paper", Paper, false},
		{"  SCISSORS ", Scissors, false},
		{"lizard", Lizard, false},
		{"spock", Spock, false},
		{"", "", true},
		{"well", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPlay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaysIsACopy(t *testing.T) {
	p := Plays()
	require.Len(t, p, 5)
	p[0] = "well"
	assert.Equal(t, Rock, Plays()[0])
}

func TestMessageEncode(t *testing.T) {
	t.Run("new", func(t *testing.T) {
		data, err := NewGameMessage("u1").Encode()
		require.NoError(t, err)
		assert.JSONEq(t, `{"action":"new","userId":"u1"}`, string(data))
	})

	t.Run("join", func(t *testing.T) {
		data, err := JoinMessage("u1", "abc123").Encode()
		require.NoError(t, err)
		assert.JSONEq(t, `{"action":"join","userId":"u1","gameId":"abc123"}`, string(data))
	})

	t.Run("play", func(t *testing.T) {
		data, err := PlayMessage("u1", "abc123", 0, Spock).Encode()
		require.NoError(t, err)
		assert.JSONEq(t, `{"action":"play","userId":"u1","gameId":"abc123","round":0,"play":"spock"}`, string(data))
	})
}

func TestMessageValidate(t *testing.T) {
	round := 1
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"missing user", Message{Action: ActionNew}, ErrMissingUserID},
		{"join without game", Message{Action: ActionJoin, UserID: "u"}, ErrMissingGameID},
		{"play without game", Message{Action: ActionPlay, UserID: "u", Round: &round, Play: Rock}, ErrMissingGameID},
		{"play without round", Message{Action: ActionPlay, UserID: "u", GameID: "g", Play: Rock}, ErrMissingRound},
		{"play with bad play", Message{Action: ActionPlay, UserID: "u", GameID: "g", Round: &round, Play: "well"}, ErrInvalidPlay},
		{"unknown action", Message{Action: "quit", UserID: "u"}, ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.msg.Validate(), tt.want)
		})
	}
}

func TestDecodePush(t *testing.T) {
	t.Run("full server state", func(t *testing.T) {
		p, err := DecodePush([]byte(`{"round":2,"gameId":"ABCDE","yourScore":1,"theirScore":0,"winner":true,
			"yourPlay":"rock","theirPlay":"lizard","roundSummary":"rock crushes lizard"}`))
		require.NoError(t, err)
		require.NotNil(t, p.Round)
		assert.Equal(t, 2, *p.Round)
		assert.Equal(t, "ABCDE", *p.GameID)
		assert.Equal(t, 1, *p.YourScore)
		assert.Equal(t, 0, *p.TheirScore)
		assert.Equal(t, Rock, *p.YourPlay)
		assert.Equal(t, Lizard, *p.TheirPlay)
		assert.Equal(t, "rock crushes lizard", *p.RoundSummary)
		assert.True(t, *p.Winner)
	})

	t.Run("empty object is a legal no-op", func(t *testing.T) {
		p, err := DecodePush([]byte(`{}`))
		require.NoError(t, err)
		assert.True(t, p.IsEmpty())
	})

	t.Run("partial push", func(t *testing.T) {
		p, err := DecodePush([]byte(`{"theirPlay":"paper"}`))
		require.NoError(t, err)
		assert.Nil(t, p.YourScore)
		assert.Nil(t, p.RoundSummary)
		assert.Equal(t, Paper, *p.TheirPlay)
	})

	t.Run("bad field is dropped alone", func(t *testing.T) {
		p, err := DecodePush([]byte(`{"yourScore":"three","roundSummary":"Tie Game","round":null}`))
		require.NoError(t, err)
		assert.Nil(t, p.YourScore)
		assert.Nil(t, p.Round)
		assert.Equal(t, "Tie Game", *p.RoundSummary)
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		p, err := DecodePush([]byte(`{"spectators":3}`))
		require.NoError(t, err)
		assert.True(t, p.IsEmpty())
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := DecodePush([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestPushMarshalOmitsAbsentFields(t *testing.T) {
	summary := "Tie Game"
	data, err := json.Marshal(Push{RoundSummary: &summary})
	require.NoError(t, err)
	assert.JSONEq(t, `{"roundSummary":"Tie Game"}`, string(data))
}
