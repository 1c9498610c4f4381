/*
 * simulation.go, part of goDMD.
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

// Package simulation runs the queue of stages (commands) of a DMD job, keeping the
// simulation clock, and leaves the job ready to be resumed if it is interrupted
// before the queue is done.
package simulation

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/params"
	"github.com/rmera/godmd/report"
	"github.com/rmera/godmd/setup"
	"github.com/rmera/godmd/titrate"
)

// Verbose enables some extra logging.
var Verbose bool

// DefaultMargin is how long before the end of the time budget the job is interrupted.
const DefaultMargin = 30 * time.Minute

// State is the state of the run loop.
type State int

const (
	Idle State = iota
	RunningStage
	Interrupted
	Completed
)

func (S State) String() string {
	switch S {
	case Idle:
		return "idle"
	case RunningStage:
		return "running stage"
	case Interrupted:
		return "interrupted"
	}
	return "completed"
}

// Options control how a job is run. The zero value runs the job in the
// working directory of the context, without a time budget.
type Options struct {
	// ScratchDir, if set and different from the job directory, is where the job
	// is actually run, in a subdirectory named as the job directory.
	ScratchDir string
	// Budget is the wall time available. The job is interrupted Margin before it ends.
	Budget time.Duration
	Margin time.Duration
	// Resubmit is called when an interrupted job has stages left and is set to resubmit.
	Resubmit func() error
	// OnStage is called with the key of each stage before it runs.
	OnStage func(key string)
	// Protein, if not nil, is set up as a new job, unless the job is already underway.
	// Otherwise the job must be set up already.
	Protein *dmd.Protein
	// Estimator replaces propka for titration stages.
	Estimator titrate.Estimator
	// Plot is the name of the PNG file plotted after each stage. Empty for no plot.
	Plot string
}

// Simulation is a DMD job.
type Simulation struct {
	C      *engine.Context // works in the job (submission) directory
	P      params.Parameters
	opt    Options
	work   *engine.Context // works where the stages actually run
	titr   *titrate.Titrator
	mu     sync.Mutex // protects what follows
	queue  params.Queue
	state  State
	clock  int
	intr   sync.Once
	intErr error
}

// New loads the job in the working directory of C.
func New(C *engine.Context, opt Options) (*Simulation, error) {
	P, err := params.Load(C.Path(params.InputFile))
	if err != nil {
		return nil, dmd.Decorate(err, "New")
	}
	if opt.Margin <= 0 {
		opt.Margin = DefaultMargin
	}
	return &Simulation{C: C, P: P, opt: opt, work: C}, nil
}

// State returns the state of the run loop.
func (S *Simulation) State() State {
	S.mu.Lock()
	defer S.mu.Unlock()
	return S.state
}

// Clock returns the simulation time reached.
func (S *Simulation) Clock() int {
	S.mu.Lock()
	defer S.mu.Unlock()
	return S.clock
}

// Queue returns a copy of the stages left.
func (S *Simulation) Queue() params.Queue {
	S.mu.Lock()
	defer S.mu.Unlock()
	return S.queue.Clone()
}

func (S *Simulation) setState(s State) {
	S.mu.Lock()
	S.state = s
	S.mu.Unlock()
}

// underway returns true if the job was set up and has stages left from a
// previous run.
func (S *Simulation) underway() bool {
	C := S.C
	return C.Exists(engine.InitialPDB) && (S.P.RemainingCommands.Len() > 0 || C.Exists(params.RecoveryFile))
}

// prepare sets up the job if needed, and builds the queue and the clock. A job
// that is underway is continued, and never set up again.
func (S *Simulation) prepare() error {
	C := S.C
	if S.opt.Protein != nil && S.underway() {
		log.Printf("prepare: the job is underway, continuing it instead of setting it up again")
	} else if S.opt.Protein != nil {
		log.Printf("prepare: setting up the job")
		if err := setup.Full(C, S.P, S.opt.Protein); err != nil {
			return err
		}
	} else if !C.Exists(engine.InitialPDB) {
		return dmd.NewError(dmd.ErrNotFound, "prepare", "%s not found, and no structure to set up the job from", engine.InitialPDB)
	}
	clock, ok, err := engine.LastTime(C.Path(S.P.EchoFile))
	if err != nil {
		return err
	}
	if !ok {
		clock = S.P.StartTime
	}
	log.Printf("prepare: starting from time %d", clock)
	if S.P.RemainingCommands.Len() == 0 && C.Exists(params.RecoveryFile) {
		rec, err := params.ReadRecovery(C.Path(params.RecoveryFile))
		if err != nil {
			return err
		}
		log.Printf("prepare: continuing from the stages %s in %s", rec, params.RecoveryFile)
		S.P.RemainingCommands = rec
	}
	q, err := params.Resume(S.P, clock)
	if err != nil {
		return err
	}
	if S.P.Titr.On {
		q = titrate.Expand(q, S.P)
	}
	log.Printf("prepare: %d stages left, %d time units", q.Len(), q.Duration(S.P.Time))
	S.mu.Lock()
	S.queue, S.clock = q, clock
	S.mu.Unlock()
	return nil
}

// stage moves the job to the scratch directory, if there is one.
func (S *Simulation) stage() error {
	if S.opt.ScratchDir == "" || sameDir(S.opt.ScratchDir, S.C.Dir) {
		return nil
	}
	dir := filepath.Join(S.opt.ScratchDir, filepath.Base(filepath.Clean(S.C.Dir)))
	log.Printf("stage: copying files from %s to %s", S.C.Dir, dir)
	if err := copyDir(S.C.Dir, dir); err != nil {
		return err
	}
	S.work = S.C.WithDir(dir)
	return nil
}

func (S *Simulation) scratch() bool {
	return S.work.Dir != S.C.Dir
}

// recoveryQueue returns the stages left, as they are written to the recovery file
// and to the job configuration. Must be called with S.mu held.
func (S *Simulation) recoveryQueue() params.Queue {
	if S.titr != nil {
		return titrate.Condense(S.queue, S.P)
	}
	return S.queue.Clone()
}

// interrupt marks the job as interrupted, writes the recovery file, and copies the
// scratch directory to the backup directory. The stage running, if any, is not stopped.
func (S *Simulation) interrupt() {
	S.intr.Do(func() {
		S.mu.Lock()
		defer S.mu.Unlock()
		if S.state == Completed {
			return
		}
		log.Printf("interrupt: time is almost up, no new stages will be started. Stages left: %s", S.queue)
		S.state = Interrupted
		if err := params.WriteRecovery(S.work.Path(params.RecoveryFile), S.recoveryQueue()); err != nil {
			S.intErr = err
			log.Printf("interrupt: %s", err.Error())
			return
		}
		if !S.scratch() {
			return
		}
		backup := S.C.Path(BackupDir)
		log.Printf("interrupt: creating the backup directory %s", backup)
		if err := os.RemoveAll(backup); err != nil {
			S.intErr = err
			return
		}
		if err := copyDir(S.work.Dir, backup); err != nil {
			S.intErr = err
			log.Printf("interrupt: %s", err.Error())
		}
	})
}

func (S *Simulation) interrupted() bool {
	S.mu.Lock()
	defer S.mu.Unlock()
	return S.state == Interrupted
}

// runStage runs the stage st, with the key key. skipped is true if the stage was
// not run, and repeat if it must be run again.
func (S *Simulation) runStage(key string, st params.Stage) (P params.Parameters, skipped, repeat bool, err error) {
	P = st.Apply(S.P)
	clock := S.Clock()
	switch {
	case P.Titr.On:
		if S.titr == nil {
			return P, false, false, dmd.NewError(dmd.ErrValidation, "runStage", "stage %s: titration can't be turned on in the middle of a run", key)
		}
		if repeat, err = S.titr.PrepareStage(&P); err != nil {
			return P, false, repeat, err
		}
		err = engine.RunDMD(S.work, P, clock, false)
	case st.Protonation != nil:
		log.Printf("runStage: stage %s: protonation states can't be changed in the middle of a run without titration, skipping it", key)
		return P, true, false, nil
	case st.Structural():
		log.Printf("runStage: stage %s: atoms can't be frozen, nor displacements restrained, in the middle of a run, skipping it", key)
		return P, true, false, nil
	default:
		err = engine.RunDMD(S.work, P, clock, true)
	}
	return P, false, repeat, err
}

// loop runs the stages until the queue is empty or the job is interrupted.
func (S *Simulation) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			S.interrupt()
		}
		if S.interrupted() {
			log.Printf("loop: interrupted, not starting a new stage")
			return nil
		}
		S.mu.Lock()
		key, st, ok := S.queue.Front()
		if ok {
			S.state = RunningStage
		}
		S.mu.Unlock()
		if !ok {
			S.setState(Completed)
			return nil
		}
		log.Printf("loop: stage %s", key)
		if Verbose {
			log.Printf("loop: stage %s runs for %d time units from %d", key, st.Duration(S.P.Time), S.Clock())
		}
		if S.opt.OnStage != nil {
			S.opt.OnStage(key)
		}
		start := time.Now()
		P, skipped, repeat, err := S.runStage(key, st)
		if err != nil {
			return dmd.Decorate(err, "loop")
		}
		if !skipped {
			var png string
			if S.opt.Plot != "" {
				png = S.work.Path(S.opt.Plot)
			}
			if _, err := report.Stage(S.work.Path(P.EchoFile), png, P.Time, time.Since(start)); err != nil {
				log.Printf("loop: no summary for stage %s: %s", key, err.Error())
			}
		}
		//an interruption during the stage keeps it in the recovery file.
		if ctx.Err() != nil {
			S.interrupt()
		}
		S.mu.Lock()
		if !skipped {
			S.P.StartTime = S.clock
			S.P.MaxTime = S.clock + P.Time
		}
		if repeat {
			log.Printf("loop: stage %s will be repeated", key)
		} else {
			S.queue.Pop()
			if !skipped {
				S.clock += P.Time
			}
		}
		if S.state == RunningStage {
			S.state = Idle
		}
		S.mu.Unlock()
	}
}

// finalize saves the state of the job to its configuration file, copies the files
// back from the scratch directory and, if the job is done, removes the recovery
// files. It returns true if the job must be resubmitted.
func (S *Simulation) finalize() (resubmit bool, err error) {
	S.mu.Lock()
	done := S.queue.Len() == 0
	S.P.RemainingCommands = S.recoveryQueue()
	if S.titr != nil && done {
		S.P.Commands.Clear()
	}
	if done {
		S.state = Completed
	}
	P := S.P.Clone()
	interrupted := S.state == Interrupted
	S.mu.Unlock()
	if !done {
		log.Printf("finalize: stages left: %s", P.RemainingCommands)
	}
	if err := P.Save(S.work.Path(params.InputFile)); err != nil {
		return false, dmd.Decorate(err, "finalize")
	}
	if S.scratch() {
		log.Printf("finalize: copying files from %s to %s", S.work.Dir, S.C.Dir)
		if err := copyDir(S.work.Dir, S.C.Dir); err != nil {
			return false, dmd.Decorate(err, "finalize")
		}
	}
	if done {
		for _, C := range []*engine.Context{S.C, S.work} {
			os.Remove(C.Path(params.RecoveryFile))
			os.RemoveAll(C.Path(BackupDir))
		}
	}
	return !done && interrupted && P.Resubmit, nil
}

// Run runs the job until its queue is done, ctx is cancelled, or the time budget
// is almost over. In the last two cases the job is left Interrupted, and can be
// resumed by running it again. The state of the job is saved in any case, unless
// it could not be prepared.
func (S *Simulation) Run(ctx context.Context) (State, error) {
	log.Printf("Run: job %s, run %s", S.C.Dir, S.C.RunID)
	if err := S.prepare(); err != nil {
		return Idle, dmd.Decorate(err, "Run")
	}
	if err := S.stage(); err != nil {
		return Idle, dmd.Decorate(err, "Run")
	}
	if S.P.Titr.On {
		S.titr = titrate.New(S.work, S.P.Titr)
		if S.opt.Estimator != nil {
			S.titr.Estimator = S.opt.Estimator
		}
	}
	if S.opt.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, S.opt.Budget-S.opt.Margin)
		defer cancel()
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			S.interrupt()
		case <-done:
		}
	}()
	lerr := S.loop(ctx)
	close(done)
	wg.Wait()
	if lerr != nil {
		log.Printf("Run: %s", lerr.Error())
	}
	resubmit, err := S.finalize()
	if err != nil {
		return S.State(), dmd.Decorate(err, "Run")
	}
	if lerr != nil {
		return S.State(), dmd.Decorate(lerr, "Run")
	}
	S.mu.Lock()
	ierr := S.intErr
	S.mu.Unlock()
	if ierr != nil {
		log.Printf("Run: the job was interrupted, but its recovery files could not be written: %s", ierr.Error())
	}
	if resubmit && S.opt.Resubmit != nil {
		log.Printf("Run: resubmitting the job")
		if err := S.opt.Resubmit(); err != nil {
			return S.State(), dmd.Decorate(err, "Run")
		}
	}
	return S.State(), nil
}
