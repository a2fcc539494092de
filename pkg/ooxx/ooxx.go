// Package ooxx implements the tic-tac-toe minigame: terminal detection and
// a perfect-play opponent.
package ooxx

import (
	"errors"
	"math"
	"strings"
)

// Mark is the content of one board cell.
type Mark string

const (
	Empty Mark = ""
	AI    Mark = "X"
	Human Mark = "O"
)

func (m Mark) String() string {
	if m == Empty {
		return "."
	}
	return string(m)
}

// Opponent returns the other player's mark.
func (m Mark) Opponent() Mark {
	switch m {
	case AI:
		return Human
	case Human:
		return AI
	}
	return Empty
}

// Board is a 3x3 grid in row-major order.
type Board [9]Mark

// Lines are the eight winning lines in evaluation order.
var Lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

var (
	ErrOccupied   = errors.New("cell is occupied")
	ErrOutOfRange = errors.New("cell index out of range")
)

// Outcome is a completed line.
type Outcome struct {
	Winner Mark
	Line   [3]int
}

// CheckTerminal returns the first complete line in Lines order, or nil
// when nobody has three in a row. A full board without a winner is a draw
// and also returns nil; use Over to detect the end of play.
func CheckTerminal(b Board) *Outcome {
	for _, l := range Lines {
		m := b[l[0]]
		if m != Empty && m == b[l[1]] && m == b[l[2]] {
			return &Outcome{Winner: m, Line: l}
		}
	}
	return nil
}

// Over reports whether the game has ended in a win or a draw.
func Over(b Board) bool {
	return CheckTerminal(b) != nil || b.Full()
}

// Full reports whether every cell is marked.
func (b Board) Full() bool {
	for _, m := range b {
		if m == Empty {
			return false
		}
	}
	return true
}

// EmptyCells returns the indices of unmarked cells in ascending order.
func (b Board) EmptyCells() []int {
	var out []int
	for i, m := range b {
		if m == Empty {
			out = append(out, i)
		}
	}
	return out
}

// Count returns how many cells hold m.
func (b Board) Count(m Mark) int {
	n := 0
	for _, c := range b {
		if c == m {
			n++
		}
	}
	return n
}

// Place returns a copy of b with m at idx.
func (b Board) Place(idx int, m Mark) (Board, error) {
	if idx < 0 || idx >= len(b) {
		return b, ErrOutOfRange
	}
	if b[idx] != Empty {
		return b, ErrOccupied
	}
	b[idx] = m
	return b, nil
}

// Valid reports whether every cell holds a known mark and the two players'
// move counts differ by at most one.
func (b Board) Valid() bool {
	for _, m := range b {
		if m != Empty && m != AI && m != Human {
			return false
		}
	}
	d := b.Count(AI) - b.Count(Human)
	return d >= -1 && d <= 1
}

func (b Board) String() string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteString("\n")
		}
		for col := 0; col < 3; col++ {
			sb.WriteString(b[row*3+col].String())
		}
	}
	return sb.String()
}

// preference orders candidate moves: centre, corners, then edges. Among
// equally scored moves the earliest wins, so full search on an empty board
// agrees with the centre opening.
var preference = [9]int{4, 0, 2, 6, 8, 1, 3, 5, 7}

// BestMove returns the optimal cell for AI to take, or -1 on a full board.
// An empty board returns the centre without searching.
func BestMove(b Board) int {
	if b.Count(Empty) == len(b) {
		return 4
	}
	return search(b)
}

func search(b Board) int {
	best, bestScore := -1, math.MinInt
	for _, idx := range preference {
		if b[idx] != Empty {
			continue
		}
		b[idx] = AI
		score := minimax(&b, Human)
		b[idx] = Empty
		if score > bestScore {
			best, bestScore = idx, score
		}
	}
	return best
}

// minimax scores b from AI's point of view with turn to move: +10 for an
// AI win, -10 for a Human win, 0 for a draw.
func minimax(b *Board, turn Mark) int {
	if o := CheckTerminal(*b); o != nil {
		if o.Winner == AI {
			return 10
		}
		return -10
	}
	if b.Full() {
		return 0
	}

	maximizing := turn == AI
	best := math.MaxInt
	if maximizing {
		best = math.MinInt
	}
	for i := range b {
		if b[i] != Empty {
			continue
		}
		b[i] = turn
		score := minimax(b, turn.Opponent())
		b[i] = Empty
		if maximizing && score > best || !maximizing && score < best {
			best = score
		}
	}
	return best
}
