// Package vi implements in-place value iteration over a finite MDP.
// Sweeps run in state order and write each backup immediately, so later
// states within a sweep see the updated values (Gauss-Seidel order).
//
// Package vi は有限MDP上のインプレース価値反復を実装します。スイープは状態順に
// 実行され、各バックアップを即座に書き込む為、同一スイープ内の後続の状態は
// 更新済みの値を参照します（ガウス・ザイデル方式）。
package vi

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/sw965/magpie/agent"
	"github.com/sw965/magpie/mdp"
	"github.com/sw965/omw/mathx/randx"
)

var (
	ErrNoAllowedActions = errors.New("合法行動エラー: 行動が存在しない状態で行動が要求されました")
	ErrNotConverged     = errors.New("収束エラー: MaxSweeps以内に収束しませんでした")
	ErrNilRng           = errors.New("rngエラー: nilです")
)

// The table starts uniform and away from zero so the first sweep always
// registers a diff on terminal states.
const initialValue = 1.0

// Solver computes an optimal state-value table by repeated Bellman backups
// and derives a greedy policy from it at query time.
type Solver struct {
	Logic mdp.Logic
	Tol   float32

	// MaxSweeps bounds Solve. 0 means unbounded, the classic
	// contraction-only termination. A non-contracting MDP (Gamma == 1,
	// cyclic rewards) then loops forever.
	MaxSweeps int

	V   []float32
	rng *rand.Rand
}

func NewSolver(logic mdp.Logic, tol float32, rng *rand.Rand) (*Solver, error) {
	if err := logic.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, ErrNilRng
	}
	return &Solver{
		Logic: logic,
		Tol:   tol,
		V:     mdp.NewValueTable(logic.NumStates, initialValue),
		rng:   rng,
	}, nil
}

var _ agent.Agent = (*Solver)(nil)

// GetAction returns the action maximizing the one-step lookahead
// Σ prob・γ・V[next] under the current table. An exact tie switches to the
// challenger with probability 1/2, so each tie is an independent coin flip
// against the current incumbent and the winner depends on enumeration
// order. Querying a terminal state is a caller error.
//
// 同値の場合は、その時点の最善手に対して確率1/2で挑戦者側に切り替わります。
// 一様抽選ではない為、結果は行動の列挙順に依存します。
func (s *Solver) GetAction(state mdp.State) (mdp.Action, error) {
	actions := s.Logic.AllowedActionsFunc(state)
	if len(actions) == 0 {
		return 0, fmt.Errorf("%w: state=%d", ErrNoAllowedActions, state)
	}

	best := actions[0]
	bestVal := s.lookahead(state, actions[0])

	for _, a := range actions[1:] {
		val := s.lookahead(state, a)
		if val > bestVal || (val == bestVal && randx.Bool(s.rng)) {
			best = a
			bestVal = val
		}
	}
	return best, nil
}

func (s *Solver) lookahead(state mdp.State, action mdp.Action) float32 {
	var val float32
	for _, t := range s.Logic.TransitionsFunc(state, action) {
		val += t.Prob * s.Logic.Gamma * s.V[t.Next]
	}
	return val
}

// Solve sweeps all states until the largest per-state change falls below
// Tol. Terminal states are pinned to zero; the pin counts toward the
// convergence check like any other update.
func (s *Solver) Solve() error {
	sweeps := 0
	for {
		maxDiff := s.sweep()
		if maxDiff < s.Tol {
			return nil
		}

		sweeps++
		if s.MaxSweeps > 0 && sweeps >= s.MaxSweeps {
			return fmt.Errorf("%w: MaxSweeps=%d maxDiff=%f", ErrNotConverged, s.MaxSweeps, maxDiff)
		}
	}
}

func (s *Solver) sweep() float32 {
	var maxDiff float32
	for i := 0; i < s.Logic.NumStates; i++ {
		state := mdp.State(i)
		actions := s.Logic.AllowedActionsFunc(state)

		var backup float32
		if len(actions) != 0 {
			backup = s.backup(state, actions[0])
			for _, a := range actions[1:] {
				if v := s.backup(state, a); v > backup {
					backup = v
				}
			}
		}

		diff := math32.Abs(s.V[i] - backup)
		s.V[i] = backup
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return maxDiff
}

// backup is the exact Bellman backup Σ prob・(reward + γ・V[next]).
func (s *Solver) backup(state mdp.State, action mdp.Action) float32 {
	var val float32
	for _, t := range s.Logic.TransitionsFunc(state, action) {
		val += t.Prob * (s.Logic.RewardFunc(state, action, t.Next) + s.Logic.Gamma*s.V[t.Next])
	}
	return val
}

// Learn satisfies agent.Agent. The reward argument carries no information
// for an offline planner and is ignored; Solve is idempotent once the
// table has converged.
func (s *Solver) Learn(_ float32) error {
	return s.Solve()
}
