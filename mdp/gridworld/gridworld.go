// Package gridworld provides a small maze MDP used as the concrete
// environment of this library: four compass actions, optional slip
// probability, wall and time penalties, and a terminal goal cell.
//
// Package gridworld は、本ライブラリの具体的な環境として使う小さな迷路MDPを
// 提供します。4方向の行動、滑り確率、壁・時間ペナルティ、終端のゴールセルを
// 持ちます。
package gridworld

import (
	"errors"
	"fmt"

	"github.com/sw965/magpie/mdp"
)

var (
	ErrInvalidSize = errors.New("Configエラー: RowsとColsは1以上でなければなりません")
	ErrInvalidCell = errors.New("Configエラー: セルが盤面の範囲外です")
	ErrInvalidSlip = errors.New("Configエラー: Slipは0.0以上1.0以下でなければなりません")
)

// Direction is the action index of a move.
type Direction = mdp.Action

const (
	Up Direction = iota
	Down
	Left
	Right
)

const NumDirections = 4

var (
	deltaRow = [NumDirections]int{-1, 1, 0, 0}
	deltaCol = [NumDirections]int{0, 0, -1, 1}
)

type Cell struct {
	Row int
	Col int
}

type Config struct {
	Rows int
	Cols int

	// Walls are cells that cannot be entered; a blocked move keeps the
	// current position and incurs WallPenalty.
	Walls []Cell
	Goal  Cell

	// Slip is the probability mass spread evenly over the three
	// unintended directions.
	Slip float32

	WallPenalty float32
	TimePenalty float32
	GoalReward  float32
	Gamma       float32
}

func (c Config) Validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return fmt.Errorf("%w: Rows=%d Cols=%d", ErrInvalidSize, c.Rows, c.Cols)
	}
	if !c.inside(c.Goal) {
		return fmt.Errorf("%w: Goal=%v", ErrInvalidCell, c.Goal)
	}
	for _, w := range c.Walls {
		if !c.inside(w) {
			return fmt.Errorf("%w: Wall=%v", ErrInvalidCell, w)
		}
	}
	if c.Slip < 0.0 || c.Slip > 1.0 {
		return fmt.Errorf("%w: Slip=%f", ErrInvalidSlip, c.Slip)
	}
	return nil
}

func (c Config) inside(cell Cell) bool {
	return cell.Row >= 0 && cell.Row < c.Rows && cell.Col >= 0 && cell.Col < c.Cols
}

// StateOf maps a cell to its row-major state index.
func (c Config) StateOf(cell Cell) mdp.State {
	return mdp.State(cell.Row*c.Cols + cell.Col)
}

// CellOf is the inverse of StateOf.
func (c Config) CellOf(state mdp.State) Cell {
	return Cell{Row: int(state) / c.Cols, Col: int(state) % c.Cols}
}

// NewLogic compiles the config into an mdp.Logic. The goal state has an
// empty allowed-action set, marking it terminal.
func NewLogic(c Config) (mdp.Logic, error) {
	if err := c.Validate(); err != nil {
		return mdp.Logic{}, err
	}

	goal := c.StateOf(c.Goal)
	wall := make(map[mdp.State]bool, len(c.Walls))
	for _, w := range c.Walls {
		wall[c.StateOf(w)] = true
	}

	allowedActions := func(s mdp.State) []mdp.Action {
		if s == goal {
			return nil
		}
		return []mdp.Action{Up, Down, Left, Right}
	}

	// A move off the board or into a wall keeps the current position.
	move := func(s mdp.State, d Direction) mdp.State {
		cell := c.CellOf(s)
		next := Cell{Row: cell.Row + deltaRow[d], Col: cell.Col + deltaCol[d]}
		if !c.inside(next) || wall[c.StateOf(next)] {
			return s
		}
		return c.StateOf(next)
	}

	transitions := func(s mdp.State, a mdp.Action) mdp.Transitions {
		if c.Slip == 0.0 {
			return mdp.Transitions{{Next: move(s, a), Prob: 1.0}}
		}

		ts := make(mdp.Transitions, 0, NumDirections)
		ts = append(ts, mdp.Transition{Next: move(s, a), Prob: 1.0 - c.Slip})

		share := c.Slip / float32(NumDirections-1)
		for d := Up; d < NumDirections; d++ {
			if d == a {
				continue
			}
			ts = append(ts, mdp.Transition{Next: move(s, d), Prob: share})
		}
		return ts
	}

	reward := func(s mdp.State, a mdp.Action, next mdp.State) float32 {
		r := c.TimePenalty
		if next == s {
			r += c.WallPenalty
		}
		if next == goal {
			r += c.GoalReward
		}
		return r
	}

	return mdp.Logic{
		NumStates:          c.Rows * c.Cols,
		NumActions:         NumDirections,
		Gamma:              c.Gamma,
		AllowedActionsFunc: allowedActions,
		TransitionsFunc:    transitions,
		RewardFunc:         reward,
	}, nil
}
