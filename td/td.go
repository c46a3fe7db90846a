// Package td implements tabular temporal-difference control with ε-greedy
// action selection. Q-learning (off-policy) and SARSA (on-policy) differ
// only in the bootstrap target action of the backup.
//
// Package td は、ε-greedy 行動選択による表形式TD制御を実装します。
// Q学習（方策オフ型）とSARSA（方策オン型）の違いは、バックアップの
// ブートストラップ対象の行動のみです。
package td

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sw965/magpie/agent"
	"github.com/sw965/magpie/mdp"
	"github.com/sw965/omw/mathx/randx"
)

var (
	ErrUnsupportedUpdateRule = errors.New("UpdateRuleエラー: 未対応の更新則です")
	ErrNoAllowedActions      = errors.New("合法行動エラー: 行動が存在しない状態で行動が要求されました")
	ErrNilRng                = errors.New("rngエラー: nilです")
)

// UpdateRule selects the bootstrap target of the TD backup.
type UpdateRule int

const (
	// QLearning bootstraps from the greedy action at the next state,
	// regardless of what is actually taken.
	QLearning UpdateRule = iota
	// Sarsa bootstraps from the action actually chosen at the next state.
	Sarsa
)

func (u UpdateRule) String() string {
	switch u {
	case QLearning:
		return "q_learning"
	case Sarsa:
		return "sarsa"
	}
	return fmt.Sprintf("UpdateRule(%d)", int(u))
}

func (u UpdateRule) Validate() error {
	switch u {
	case QLearning, Sarsa:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedUpdateRule, u)
}

// Update is the tabular one-step backup q + α(reward + γ・nextQ − q).
func Update(q, nextQ, reward, alpha, gamma float32) float32 {
	qRatio := 1.0 - alpha
	target := reward + gamma*nextQ
	return (qRatio * q) + (alpha * target)
}

// pendingTransition tracks the streaming (s0, a0, r, s1, a1) quintuple.
// One full quintuple becomes consumable every second Learn call; shift
// advances the window so the current pair becomes the previous one.
type pendingTransition struct {
	prevState  mdp.State
	prevAction mdp.Action
	hasPrev    bool

	// reward observed after (prevState, prevAction), supplied by the
	// Learn call that preceded the current one.
	reward float32

	curState  mdp.State
	curAction mdp.Action
	hasCur    bool
}

func (p *pendingTransition) shift(state mdp.State, action mdp.Action) {
	p.prevState = p.curState
	p.prevAction = p.curAction
	p.hasPrev = p.hasCur
	p.curState = state
	p.curAction = action
	p.hasCur = true
}

const initialQ = 1.0

// Learner maintains a per-state action-value row updated online from a
// stream of (state, reward) observations.
type Learner struct {
	Logic   mdp.Logic
	Rule    UpdateRule
	Epsilon float32
	Alpha   float32

	// Q rows are indexed by position in the state's allowed-action set
	// at construction time.
	Q [][]float32

	rng     *rand.Rand
	pending pendingTransition
}

func NewLearner(logic mdp.Logic, rule UpdateRule, epsilon, alpha float32, rng *rand.Rand) (*Learner, error) {
	if err := logic.Validate(); err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, ErrNilRng
	}

	actionCount := func(s mdp.State) int {
		return len(logic.AllowedActionsFunc(s))
	}

	return &Learner{
		Logic:   logic,
		Rule:    rule,
		Epsilon: epsilon,
		Alpha:   alpha,
		Q:       mdp.NewQTable(logic.NumStates, actionCount, initialQ),
		rng:     rng,
	}, nil
}

var _ agent.Agent = (*Learner)(nil)

// greedyAction argmaxes over the entire Q row; the first index wins ties.
// The row length, not the current allowed-action set, bounds the search,
// so the row is assumed to cover exactly the state's legal actions.
func (l *Learner) greedyAction(state mdp.State) mdp.Action {
	row := l.Q[state]
	best := 0
	for i, q := range row[1:] {
		if q > row[best] {
			best = i + 1
		}
	}
	return mdp.Action(best)
}

// GetAction selects ε-greedily: with probability Epsilon a uniform draw
// from the allowed set, otherwise the greedy action. The streaming window
// advances before returning.
func (l *Learner) GetAction(state mdp.State) (mdp.Action, error) {
	allowed := l.Logic.AllowedActionsFunc(state)
	if len(allowed) == 0 {
		return 0, fmt.Errorf("%w: state=%d", ErrNoAllowedActions, state)
	}

	var action mdp.Action
	if l.rng.Float32() < l.Epsilon {
		a, err := randx.Choice(allowed, l.rng)
		if err != nil {
			return 0, err
		}
		action = a
	} else {
		action = l.greedyAction(state)
	}

	l.pending.shift(state, action)
	return action, nil
}

// Learn applies one bootstrapped update if a previous pair exists, then
// stores reward for the following update. The reward consumed here is the
// one passed to the previous call: the effect of a reward is only realized
// once the subsequent transition is known.
func (l *Learner) Learn(reward float32) error {
	if l.pending.hasPrev {
		var target mdp.Action
		switch l.Rule {
		case QLearning:
			target = l.greedyAction(l.pending.curState)
		case Sarsa:
			target = l.pending.curAction
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedUpdateRule, l.Rule)
		}

		s0, a0 := l.pending.prevState, l.pending.prevAction
		nextQ := l.Q[l.pending.curState][target]
		l.Q[s0][a0] = Update(l.Q[s0][a0], nextQ, l.pending.reward, l.Alpha, l.Logic.Gamma)
	}

	l.pending.reward = reward
	return nil
}
