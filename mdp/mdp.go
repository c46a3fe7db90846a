// Package mdp defines the contract between tabular decision-making
// algorithms and a finite Markov Decision Process. Validation of transition
// distributions is centralized in Transitions.Validate.
//
// Package mdp は、表形式の意思決定アルゴリズムと有限マルコフ決定過程との間の
// 契約を定義します。遷移分布のバリデーションは Transitions.Validate に集約されています。
package mdp

import (
	"errors"
	"fmt"
	"github.com/chewxy/math32"
)

// State is an index in [0, NumStates). Its semantics are owned by the
// environment, not by this package.
type State int

// Action is an index into the allowed-action set of a state.
type Action int

var (
	ErrNilLogicFunc   = errors.New("Logicエラー: フィールドの関数がnilです")
	ErrInvalidStates  = errors.New("Logicエラー: NumStatesは1以上でなければなりません")
	ErrInvalidActions = errors.New("Logicエラー: NumActionsは1以上でなければなりません")
	ErrInvalidGamma   = errors.New("Logicエラー: Gammaは0.0以上1.0以下でなければなりません")

	ErrEmptyTransitions = errors.New("Transitionsエラー: 要素数が0です")
	ErrBadProb          = errors.New("Transitionsエラー: 確率が不正です（負数/NaN/Inf）")
	ErrBadProbSum       = errors.New("Transitionsエラー: 確率の合計が1ではありません")
)

// ProbSumTol is the tolerance used when checking that a distribution sums
// to one.
const ProbSumTol = 1e-3

// Transition is one (next state, probability) pair of a distribution.
type Transition struct {
	Next State
	Prob float32
}

type Transitions []Transition

// Validate checks that the distribution is well formed: every probability
// finite and non-negative, and the total within tol of 1.
func (ts Transitions) Validate(tol float32) error {
	if len(ts) == 0 {
		return ErrEmptyTransitions
	}

	var sum float32
	for _, t := range ts {
		if t.Prob < 0 || math32.IsNaN(t.Prob) || math32.IsInf(t.Prob, 0) {
			return fmt.Errorf("%w: prob=%f next=%d", ErrBadProb, t.Prob, t.Next)
		}
		sum += t.Prob
	}

	if math32.Abs(sum-1.0) > tol {
		return fmt.Errorf("%w: sum=%f", ErrBadProbSum, sum)
	}
	return nil
}

type AllowedActionsFunc func(State) []Action
type TransitionsFunc func(State, Action) Transitions
type RewardFunc func(State, Action, State) float32

// Logic describes a finite MDP. An empty allowed-action set marks a
// terminal state.
type Logic struct {
	NumStates          int
	NumActions         int
	Gamma              float32
	AllowedActionsFunc AllowedActionsFunc
	TransitionsFunc    TransitionsFunc
	RewardFunc         RewardFunc
}

func (l Logic) Validate() error {
	if l.NumStates < 1 {
		return fmt.Errorf("%w: NumStates=%d", ErrInvalidStates, l.NumStates)
	}
	if l.NumActions < 1 {
		return fmt.Errorf("%w: NumActions=%d", ErrInvalidActions, l.NumActions)
	}
	if l.Gamma < 0.0 || l.Gamma > 1.0 || math32.IsNaN(l.Gamma) {
		return fmt.Errorf("%w: Gamma=%f", ErrInvalidGamma, l.Gamma)
	}
	if l.AllowedActionsFunc == nil {
		return fmt.Errorf("%w: AllowedActionsFunc", ErrNilLogicFunc)
	}
	if l.TransitionsFunc == nil {
		return fmt.Errorf("%w: TransitionsFunc", ErrNilLogicFunc)
	}
	if l.RewardFunc == nil {
		return fmt.Errorf("%w: RewardFunc", ErrNilLogicFunc)
	}
	return nil
}

// IsTerminal reports whether the state has no allowed actions.
func (l Logic) IsTerminal(s State) bool {
	return len(l.AllowedActionsFunc(s)) == 0
}

// NewValueTable allocates a state-value table filled with a constant.
func NewValueTable(numStates int, fill float32) []float32 {
	v := make([]float32, numStates)
	for i := range v {
		v[i] = fill
	}
	return v
}

// NewQTable allocates one row per state, sized by that state's action count
// and filled with a constant. A zero-length row marks a terminal state.
func NewQTable(numStates int, actionCount func(State) int, fill float32) [][]float32 {
	q := make([][]float32, numStates)
	for s := range q {
		row := make([]float32, actionCount(State(s)))
		for i := range row {
			row[i] = fill
		}
		q[s] = row
	}
	return q
}
