// Package terminal renders a running game with bubbletea.
//
// The view shows the share link, round, both scores, both plays, the
// status line and whether a play is outstanding. Keys r, p, s, l and k
// submit rock, paper, scissors, lizard and spock; q or ctrl+c quits.
//
// State arrives through a service subscription. When the game connection
// ends the last state stays on screen until the user quits.
package terminal
