// Package agent declares the capability shared by the tabular solvers:
// select an action for a state, then incorporate the observed reward.
//
// Package agent は、表形式ソルバーが共有する能力（状態に対する行動選択と、
// 観測した報酬の取り込み）を宣言します。
package agent

import (
	"github.com/sw965/magpie/mdp"
)

// Agent is driven by an external loop that alternates GetAction and Learn.
// Offline planners satisfy the same contract; they may ignore the reward
// argument of Learn.
type Agent interface {
	GetAction(state mdp.State) (mdp.Action, error)
	Learn(reward float32) error
}
