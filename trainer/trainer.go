// Package trainer drives online agents against an MDP: the agent picks an
// action, the environment samples the next state, and the reward is
// streamed back through Learn.
//
// Package trainer は、MDPに対してオンラインエージェントを駆動します。
// エージェントが行動を選び、環境が次状態を抽選し、報酬は Learn を通じて
// ストリームとして返されます。
package trainer

import (
	"math/rand/v2"

	"github.com/sw965/magpie/agent"
	"github.com/sw965/magpie/mdp"
	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/omw/parallel"
)

type Step struct {
	State  mdp.State
	Action mdp.Action
	Reward float32
}

// Record is the trajectory of one episode. Return is the undiscounted
// reward sum.
type Record struct {
	Steps  []Step
	Final  mdp.State
	Return float32
}

func sampleNext(ts mdp.Transitions, rng *rand.Rand) (mdp.State, error) {
	ws := make([]float32, len(ts))
	for i, t := range ts {
		ws[i] = t.Prob
	}
	idx, err := randx.IndexByWeights(ws, rng)
	if err != nil {
		return 0, err
	}
	return ts[idx].Next, nil
}

// RunEpisode runs a single episode from init, ending at a terminal state or
// after stepCap steps.
func RunEpisode(logic mdp.Logic, ag agent.Agent, init mdp.State, stepCap int, rng *rand.Rand) (Record, error) {
	if err := logic.Validate(); err != nil {
		return Record{}, err
	}

	record := Record{Steps: make([]Step, 0, stepCap)}
	state := init

	for len(record.Steps) < stepCap {
		if logic.IsTerminal(state) {
			break
		}

		action, err := ag.GetAction(state)
		if err != nil {
			return Record{}, err
		}

		ts := logic.TransitionsFunc(state, action)
		// 分布の総和チェックは安価なので、一歩毎に行う
		if err := ts.Validate(mdp.ProbSumTol); err != nil {
			return Record{}, err
		}

		next, err := sampleNext(ts, rng)
		if err != nil {
			return Record{}, err
		}

		reward := logic.RewardFunc(state, action, next)
		if err := ag.Learn(reward); err != nil {
			return Record{}, err
		}

		record.Steps = append(record.Steps, Step{State: state, Action: action, Reward: reward})
		record.Return += reward
		state = next
	}

	record.Final = state
	return record, nil
}

// Train runs one episode per init state, sequentially, against a single
// agent.
func Train(logic mdp.Logic, ag agent.Agent, inits []mdp.State, stepCap int, rng *rand.Rand) ([]Record, error) {
	records := make([]Record, len(inits))
	for i, init := range inits {
		record, err := RunEpisode(logic, ag, init, stepCap, rng)
		if err != nil {
			return nil, err
		}
		records[i] = record
	}
	return records, nil
}

// TrainEach trains independent agents concurrently. Agents share no state,
// so len(rngs) bounds the worker count, one rng per worker.
func TrainEach(logic mdp.Logic, agents []agent.Agent, inits []mdp.State, stepCap int, rngs []*rand.Rand) ([][]Record, error) {
	n := len(agents)
	p := len(rngs)
	results := make([][]Record, n)

	err := parallel.For(n, p, func(workerId, idx int) error {
		records, err := Train(logic, agents[idx], inits, stepCap, rngs[workerId])
		if err != nil {
			return err
		}
		results[idx] = records
		return nil
	})
	return results, err
}
