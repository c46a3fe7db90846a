package vi

import (
	"fmt"

	"github.com/sw965/magpie/mdp"
	"gonum.org/v1/gonum/mat"
)

// EvaluatePolicy computes the exact value of a fixed policy by solving the
// linear system (I − γPπ)v = rπ. Terminal states keep the identity row with
// zero reward, pinning their value to 0.
//
// EvaluatePolicyは、連立一次方程式 (I − γPπ)v = rπ を解く事で、固定方策の
// 正確な価値を計算します。終端状態の価値は0に固定されます。
func EvaluatePolicy(logic mdp.Logic, policy func(mdp.State) mdp.Action) ([]float32, error) {
	if err := logic.Validate(); err != nil {
		return nil, err
	}

	n := logic.NumStates
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	gamma := float64(logic.Gamma)

	for i := 0; i < n; i++ {
		state := mdp.State(i)
		a.Set(i, i, 1.0)
		if logic.IsTerminal(state) {
			continue
		}

		action := policy(state)
		var r float64
		for _, t := range logic.TransitionsFunc(state, action) {
			j := int(t.Next)
			p := float64(t.Prob)
			a.Set(i, j, a.At(i, j)-gamma*p)
			r += p * float64(logic.RewardFunc(state, action, t.Next))
		}
		b.SetVec(i, r)
	}

	var v mat.VecDense
	if err := v.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("方策評価エラー: (I − γPπ) を解けませんでした: %w", err)
	}

	values := make([]float32, n)
	for i := range values {
		values[i] = float32(v.AtVec(i))
	}
	return values, nil
}
