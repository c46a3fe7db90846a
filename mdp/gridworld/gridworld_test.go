package gridworld_test

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/sw965/magpie/mdp"
	"github.com/sw965/magpie/mdp/gridworld"
)

func newConfig() gridworld.Config {
	return gridworld.Config{
		Rows:        3,
		Cols:        3,
		Goal:        gridworld.Cell{Row: 2, Col: 2},
		Walls:       []gridworld.Cell{{Row: 1, Col: 1}},
		Slip:        0.3,
		WallPenalty: -0.1,
		TimePenalty: -0.1,
		GoalReward:  4.0,
		Gamma:       0.9,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*gridworld.Config)
		wantErr error
	}{
		{
			name:   "正常",
			mutate: func(c *gridworld.Config) {},
		},
		{
			name:    "異常_サイズが0",
			mutate:  func(c *gridworld.Config) { c.Rows = 0 },
			wantErr: gridworld.ErrInvalidSize,
		},
		{
			name:    "異常_ゴールが範囲外",
			mutate:  func(c *gridworld.Config) { c.Goal = gridworld.Cell{Row: 3, Col: 0} },
			wantErr: gridworld.ErrInvalidCell,
		},
		{
			name:    "異常_壁が範囲外",
			mutate:  func(c *gridworld.Config) { c.Walls = []gridworld.Cell{{Row: -1, Col: 0}} },
			wantErr: gridworld.ErrInvalidCell,
		},
		{
			name:    "異常_Slipが範囲外",
			mutate:  func(c *gridworld.Config) { c.Slip = 1.5 },
			wantErr: gridworld.ErrInvalidSlip,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newConfig()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("想定外のエラー: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestStateCellRoundTrip(t *testing.T) {
	c := newConfig()
	for row := 0; row < c.Rows; row++ {
		for col := 0; col < c.Cols; col++ {
			cell := gridworld.Cell{Row: row, Col: col}
			if got := c.CellOf(c.StateOf(cell)); got != cell {
				t.Fatalf("round trip %v -> %v", cell, got)
			}
		}
	}
}

func TestNewLogic(t *testing.T) {
	c := newConfig()
	logic, err := gridworld.NewLogic(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := logic.Validate(); err != nil {
		t.Fatal(err)
	}

	goal := c.StateOf(c.Goal)
	if !logic.IsTerminal(goal) {
		t.Fatalf("goal should be terminal")
	}

	// 非終端状態の全行動について、遷移分布が正規化されている事を確認する
	for s := mdp.State(0); int(s) < logic.NumStates; s++ {
		for _, a := range logic.AllowedActionsFunc(s) {
			ts := logic.TransitionsFunc(s, a)
			if err := ts.Validate(mdp.ProbSumTol); err != nil {
				t.Fatalf("state=%d action=%d: %v", s, a, err)
			}
		}
	}
}

func TestBumpKeepsPositionAndPenalizes(t *testing.T) {
	c := newConfig()
	c.Slip = 0.0
	logic, err := gridworld.NewLogic(c)
	if err != nil {
		t.Fatal(err)
	}

	// (0,0)から上に移動すると盤外なので、その場に留まる
	origin := c.StateOf(gridworld.Cell{Row: 0, Col: 0})
	ts := logic.TransitionsFunc(origin, gridworld.Up)
	if len(ts) != 1 || ts[0].Next != origin {
		t.Fatalf("bump should stay at origin: %v", ts)
	}

	r := logic.RewardFunc(origin, gridworld.Up, ts[0].Next)
	want := c.TimePenalty + c.WallPenalty
	if math32.Abs(r-want) > 1e-6 {
		t.Fatalf("reward = %f, want %f", r, want)
	}

	// 壁セル(1,1)への移動も同様にその場に留まる
	left := c.StateOf(gridworld.Cell{Row: 1, Col: 0})
	ts = logic.TransitionsFunc(left, gridworld.Right)
	if len(ts) != 1 || ts[0].Next != left {
		t.Fatalf("move into wall should stay: %v", ts)
	}
}

func TestGoalReward(t *testing.T) {
	c := newConfig()
	c.Slip = 0.0
	logic, err := gridworld.NewLogic(c)
	if err != nil {
		t.Fatal(err)
	}

	above := c.StateOf(gridworld.Cell{Row: 1, Col: 2})
	goal := c.StateOf(c.Goal)

	ts := logic.TransitionsFunc(above, gridworld.Down)
	if len(ts) != 1 || ts[0].Next != goal {
		t.Fatalf("expected deterministic move to goal: %v", ts)
	}

	r := logic.RewardFunc(above, gridworld.Down, goal)
	want := c.TimePenalty + c.GoalReward
	if math32.Abs(r-want) > 1e-6 {
		t.Fatalf("reward = %f, want %f", r, want)
	}
}

func TestSlipSpreadsOverOtherDirections(t *testing.T) {
	c := newConfig()
	logic, err := gridworld.NewLogic(c)
	if err != nil {
		t.Fatal(err)
	}

	center := c.StateOf(gridworld.Cell{Row: 0, Col: 1})
	ts := logic.TransitionsFunc(center, gridworld.Right)
	if len(ts) != gridworld.NumDirections {
		t.Fatalf("len(ts) = %d, want %d", len(ts), gridworld.NumDirections)
	}

	if math32.Abs(ts[0].Prob-(1.0-c.Slip)) > 1e-6 {
		t.Fatalf("intended prob = %f, want %f", ts[0].Prob, 1.0-c.Slip)
	}

	share := c.Slip / float32(gridworld.NumDirections-1)
	for _, tr := range ts[1:] {
		if math32.Abs(tr.Prob-share) > 1e-6 {
			t.Fatalf("slip prob = %f, want %f", tr.Prob, share)
		}
	}
}
