/*
 * simulation_test.go, part of goDMD.
 *
 *
 * Copyright 2024 The goDMD authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package simulation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/internal/fake"
	"github.com/rmera/godmd/params"
	"github.com/rmera/godmd/setup"
	"github.com/rmera/godmd/titrate"
)

func timed(t int) params.Stage {
	return params.Stage{Time: &t}
}

// job sets up a job with the given stages in a new directory, with the fake
// programs. The trial run of the setup is not counted in dmd_calls.
func job(Te *testing.T, edit func(*params.Parameters), stages ...params.Stage) *engine.Context {
	return jobFrom(Te, fake.Protein(Te), edit, stages...)
}

func stageParameters(edit func(*params.Parameters), stages ...params.Stage) params.Parameters {
	P := params.Default()
	P.Time = 10
	keys := make([]string, len(stages))
	for i := range stages {
		keys[i] = string(rune('1' + i))
	}
	P.Commands = params.NewQueue(keys, stages)
	if edit != nil {
		edit(&P)
	}
	return P
}

// jobFrom is job, for the structure prot.
func jobFrom(Te *testing.T, prot *dmd.Protein, edit func(*params.Parameters), stages ...params.Stage) *engine.Context {
	C := fake.Context(Te)
	P := stageParameters(edit, stages...)
	require.NoError(Te, setup.Full(C, P, prot))
	require.NoError(Te, P.Save(C.Path(params.InputFile)))
	require.NoError(Te, os.Remove(C.Path("dmd_calls")))
	return C
}

func dmdCalls(Te *testing.T, dir string) []string {
	b, err := os.ReadFile(filepath.Join(dir, "dmd_calls"))
	require.NoError(Te, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestRun(Te *testing.T) {
	C := jobFrom(Te, fake.Dimer(Te), nil, timed(50), timed(100))
	initial, err := dmd.PDBFileRead(C.Path(engine.InitialPDB))
	require.NoError(Te, err)
	//two chains, and the substrate chain with the zinc.
	require.Len(Te, initial.Chains, 3)
	zn, err := initial.Atom("C", 1, "ZN")
	require.NoError(Te, err)
	require.Equal(Te, "zn", zn.Element)

	S, err := New(C, Options{Plot: "summary.png"})
	require.NoError(Te, err)
	state, err := S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Completed, state)
	require.Equal(Te, 150, S.Clock())
	require.Zero(Te, S.Queue().Len())

	calls := dmdCalls(Te, C.Dir)
	require.Len(Te, calls, 2)
	require.Contains(Te, calls[0], "-s state")
	require.Contains(Te, calls[1], "-s restart")
	last, ok, err := engine.LastTime(C.Path("echo"))
	require.NoError(Te, err)
	require.True(Te, ok)
	require.Equal(Te, 150, last)

	P, err := params.Load(C.Path(params.InputFile))
	require.NoError(Te, err)
	require.Zero(Te, P.RemainingCommands.Len())
	require.Equal(Te, 2, P.Commands.Len())
	require.Equal(Te, 50, P.StartTime)
	require.Equal(Te, 150, P.MaxTime)
	require.False(Te, C.Exists(params.RecoveryFile))
	require.True(Te, C.Exists("summary.png"))
}

func TestRunSetsUp(Te *testing.T) {
	C := fake.Context(Te)
	P := params.Default()
	P.Time = 10
	require.NoError(Te, P.Save(C.Path(params.InputFile)))
	S, err := New(C, Options{Protein: fake.Protein(Te)})
	require.NoError(Te, err)
	state, err := S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Completed, state)
	require.True(Te, C.Exists(engine.InitialPDB))
	//the trial run, and the default stage.
	require.Len(Te, dmdCalls(Te, C.Dir), 2)
	require.Equal(Te, 10, S.Clock())
}

func TestRunNotSetUp(Te *testing.T) {
	C := fake.Context(Te)
	require.NoError(Te, params.Default().Save(C.Path(params.InputFile)))
	S, err := New(C, Options{})
	require.NoError(Te, err)
	_, err = S.Run(context.Background())
	require.True(Te, errors.Is(err, dmd.ErrNotFound))
}

func interruptAt(key string, cancel context.CancelFunc) func(string) {
	return func(k string) {
		if k == key {
			cancel()
		}
	}
}

func TestInterrupt(Te *testing.T) {
	C := job(Te, nil, timed(10), timed(10), timed(10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	S, err := New(C, Options{OnStage: interruptAt("2", cancel)})
	require.NoError(Te, err)
	state, err := S.Run(ctx)
	require.NoError(Te, err)
	require.Equal(Te, Interrupted, state)
	//the stage running is not stopped.
	require.Len(Te, dmdCalls(Te, C.Dir), 2)
	require.Equal(Te, 20, S.Clock())

	rec, err := params.ReadRecovery(C.Path(params.RecoveryFile))
	require.NoError(Te, err)
	require.Equal(Te, []string{"2", "3"}, rec.Keys())
	P, err := params.Load(C.Path(params.InputFile))
	require.NoError(Te, err)
	require.Equal(Te, []string{"3"}, P.RemainingCommands.Keys())
	require.False(Te, C.Exists(BackupDir))

	S, err = New(C, Options{})
	require.NoError(Te, err)
	state, err = S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Completed, state)
	require.Equal(Te, 30, S.Clock())
	calls := dmdCalls(Te, C.Dir)
	require.Len(Te, calls, 3)
	require.Contains(Te, calls[2], "-s restart")
	require.False(Te, C.Exists(params.RecoveryFile))
}

func TestResubmitWithStructure(Te *testing.T) {
	C := fake.Context(Te)
	P := stageParameters(nil, timed(10), timed(10), timed(10))
	require.NoError(Te, P.Save(C.Path(params.InputFile)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opt := Options{Protein: fake.Protein(Te), OnStage: interruptAt("2", cancel)}
	S, err := New(C, opt)
	require.NoError(Te, err)
	state, err := S.Run(ctx)
	require.NoError(Te, err)
	require.Equal(Te, Interrupted, state)
	//the trial run, and two stages.
	require.Len(Te, dmdCalls(Te, C.Dir), 3)

	//the same options again: the job continues from its restart file.
	opt.Protein = fake.Protein(Te)
	opt.OnStage = nil
	S, err = New(C, opt)
	require.NoError(Te, err)
	state, err = S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Completed, state)
	require.Equal(Te, 30, S.Clock())
	calls := dmdCalls(Te, C.Dir)
	require.Len(Te, calls, 4)
	require.Contains(Te, calls[3], "-s restart")
}

func TestInterruptScratch(Te *testing.T) {
	C := job(Te, func(P *params.Parameters) { P.Resubmit = true }, timed(10), timed(10), timed(10))
	scratch := Te.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resubmitted := 0
	opt := Options{ScratchDir: scratch, OnStage: interruptAt("2", cancel), Resubmit: func() error {
		resubmitted++
		return nil
	}}
	S, err := New(C, opt)
	require.NoError(Te, err)
	state, err := S.Run(ctx)
	require.NoError(Te, err)
	require.Equal(Te, Interrupted, state)
	require.Equal(Te, 1, resubmitted)

	work := filepath.Join(scratch, filepath.Base(C.Dir))
	require.FileExists(Te, filepath.Join(work, "echo"))
	require.DirExists(Te, C.Path(BackupDir))
	require.FileExists(Te, filepath.Join(C.Path(BackupDir), params.RecoveryFile))
	require.NoDirExists(Te, filepath.Join(work, BackupDir))
	rec, err := params.ReadRecovery(C.Path(params.RecoveryFile))
	require.NoError(Te, err)
	require.Equal(Te, []string{"2", "3"}, rec.Keys())
	//copied back from the scratch directory.
	require.Len(Te, dmdCalls(Te, C.Dir), 2)

	opt.OnStage = nil
	S, err = New(C, opt)
	require.NoError(Te, err)
	state, err = S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Completed, state)
	require.Equal(Te, 1, resubmitted)
	require.NoDirExists(Te, C.Path(BackupDir))
	require.False(Te, C.Exists(params.RecoveryFile))
	require.NoFileExists(Te, filepath.Join(work, params.RecoveryFile))
}

func TestBudget(Te *testing.T) {
	C := job(Te, nil, timed(10), timed(10))
	S, err := New(C, Options{Budget: DefaultMargin})
	require.NoError(Te, err)
	state, err := S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Interrupted, state)
	require.Equal(Te, 0, S.Clock())
	rec, err := params.ReadRecovery(C.Path(params.RecoveryFile))
	require.NoError(Te, err)
	require.Equal(Te, []string{"1", "2"}, rec.Keys())
}

func TestStructuralStage(Te *testing.T) {
	frozen := params.Stage{Frozen: &params.Frozen{Chains: []string{"A"}}}
	prot := params.Stage{Protonation: &[]params.Protonation{{Chain: "A", Residue: 1, Action: params.Protonate}}}
	C := job(Te, nil, timed(10), frozen, prot, timed(10))
	S, err := New(C, Options{})
	require.NoError(Te, err)
	state, err := S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Completed, state)
	require.Len(Te, dmdCalls(Te, C.Dir), 2)
	require.Equal(Te, 20, S.Clock())
}

func TestTitrationTurnedOn(Te *testing.T) {
	on := params.Stage{Titr: &params.Titration{On: true, StepTime: 5, PH: 7}}
	C := job(Te, nil, timed(10), on)
	S, err := New(C, Options{})
	require.NoError(Te, err)
	_, err = S.Run(context.Background())
	require.True(Te, errors.Is(err, dmd.ErrValidation))
	P, err := params.Load(C.Path(params.InputFile))
	require.NoError(Te, err)
	require.Equal(Te, []string{"2"}, P.RemainingCommands.Keys())
}

// counter is an Estimator that predicts nothing.
type counter struct {
	calls int
}

func (c *counter) Estimate(frame *dmd.Protein) titrate.Result {
	c.calls++
	return titrate.Result{Status: titrate.Success, Estimate: titrate.Estimate{PKa: map[titrate.Key]float64{}, Buried: map[titrate.Key]float64{}}}
}

func TestTitration(Te *testing.T) {
	C := job(Te, func(P *params.Parameters) {
		P.Titr = params.Titration{On: true, StepTime: 10, PH: 7}
	}, timed(30))
	est := &counter{}
	S, err := New(C, Options{Estimator: est})
	require.NoError(Te, err)
	state, err := S.Run(context.Background())
	require.NoError(Te, err)
	require.Equal(Te, Completed, state)
	require.Equal(Te, 30, S.Clock())
	require.Equal(Te, 2, est.calls)
	require.Equal(Te, 3, S.titr.Step)
	calls := dmdCalls(Te, C.Dir)
	require.Len(Te, calls, 3)
	for _, c := range calls {
		require.Contains(Te, c, "-s state")
	}
	require.True(Te, C.Exists(titrate.MoviePDB))
	require.True(Te, titrate.HasSnapshot(C))

	P, err := params.Load(C.Path(params.InputFile))
	require.NoError(Te, err)
	require.Zero(Te, P.Commands.Len())
	require.Zero(Te, P.RemainingCommands.Len())
}
