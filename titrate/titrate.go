/*
 * titrate.go, part of goDMD.
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

// Package titrate alternates DMD stages with the re-evaluation of the protonation
// states of the titratable groups, using an external pKa estimator and a Monte Carlo
// decision. When the estimator fails on a structure, the job goes back to the last
// structure that was evaluated successfully.
package titrate

import (
	"io"
	"log"
	"os"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/params"
	"github.com/rmera/godmd/setup"
)

// MoviePDB accumulates the frames of all the titration steps. movieTmp
// holds the frames of the last one.
const (
	MoviePDB = "movie.pdb"
	movieTmp = "_tmpMovie.pdb"
)

// Preparer builds the input files for a titration step from the parameters
// P and the structure frame.
type Preparer func(C *engine.Context, P params.Parameters, frame *dmd.Protein) error

// Titrator keeps the state of the titration of a job.
type Titrator struct {
	C         *engine.Context
	Estimator Estimator
	Sampler   *Sampler
	Prepare   Preparer
	// Step is the number of titration steps done.
	Step int
}

// New returns a Titrator that uses propka and prepares the steps with setup.Titration.
func New(C *engine.Context, t params.Titration) *Titrator {
	return &Titrator{C: C, Estimator: &Propka{C: C}, Sampler: NewSampler(t), Prepare: setup.Titration}
}

// frame returns the last structure of the previous titration step, with PDB names.
// The movie of the step is converted and appended to MoviePDB, and the engine's movie
// and restart files are removed. Without a movie, the initial structure is used, and
// appended to MoviePDB as one model, so a snapshot can always be taken.
func (T *Titrator) frame(P params.Parameters) (*dmd.Protein, error) {
	C := T.C
	var frame *dmd.Protein
	var err error
	if C.Exists(P.MovieFile) {
		if err = engine.MakeMovie(C, engine.InitialPDB, P.MovieFile, movieTmp); err != nil {
			return nil, err
		}
		if err = appendFile(C.Path(movieTmp), C.Path(MoviePDB)); err != nil {
			return nil, err
		}
		if frame, err = dmd.LastFrame(C.Path(movieTmp), "frame"); err != nil {
			return nil, err
		}
		os.Remove(C.Path(movieTmp))
		os.Remove(C.Path(P.MovieFile))
	} else {
		if frame, err = dmd.PDBFileRead(C.Path(engine.InitialPDB)); err != nil {
			return nil, err
		}
		log.Printf("frame: no trajectory, using %s", engine.InitialPDB)
		if err = appendModel(frame, C.Path(MoviePDB)); err != nil {
			return nil, err
		}
	}
	os.Remove(C.Path(P.RestartFile))
	return frame, frame.Relabel(dmd.SchemePDB)
}

// appendModel adds prot to the end of the multi-model PDB file dst.
func appendModel(prot *dmd.Protein, dst string) error {
	out, err := os.OpenFile(dst, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err = io.WriteString(out, "MODEL        1\n"); err != nil {
		out.Close()
		return err
	}
	if err = dmd.PDBWrite(out, prot); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func appendFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Rollback goes back to the structure and echo file of the last successful step,
// and takes one step back. It returns the restored structure, with PDB names.
func (T *Titrator) Rollback(P params.Parameters) (*dmd.Protein, error) {
	frame, err := Restore(T.C, P.EchoFile, MoviePDB)
	if err != nil {
		return nil, dmd.Decorate(err, "Rollback")
	}
	T.Step--
	log.Printf("Rollback: back to titration step %d", T.Step)
	return frame, dmd.Decorate(frame.Relabel(dmd.SchemePDB), "Rollback")
}

// evaluate takes a step forward and runs the estimator on frame.
func (T *Titrator) evaluate(frame *dmd.Protein) Result {
	T.Step++
	log.Printf("evaluate: titration step %d", T.Step)
	return T.Estimator.Estimate(frame)
}

// PrepareStage gets the job in the working directory ready for the titration stage
// with parameters P. On the first pass, when there is no echo and restart file, it only
// counts the step. Otherwise the last frame of the previous step is evaluated, the new
// protonation states are stored in P, and the input files are prepared from the frame.
// If the estimator fails on the frame, the job goes back to the last good step, which is
// evaluated again, and repeat is true: the stage has to be run again without advancing
// the clock. It is an error if the estimator fails again, or if there is no step to go
// back to.
func (T *Titrator) PrepareStage(P *params.Parameters) (repeat bool, err error) {
	C := T.C
	if !C.Exists(P.EchoFile) || !C.Exists(P.RestartFile) {
		T.Step++
		log.Printf("PrepareStage: titration step %d, nothing to evaluate yet", T.Step)
		return false, nil
	}
	frame, err := T.frame(*P)
	if err != nil {
		return false, dmd.Decorate(err, "PrepareStage")
	}
	res := T.evaluate(frame)
	switch res.Status {
	case Fatal:
		return false, dmd.Decorate(res.Err, "PrepareStage")
	case RollbackRequested:
		log.Printf("PrepareStage: the pKa estimation failed on step %d: %v", T.Step, res.Err)
		if frame, err = T.Rollback(*P); err != nil {
			return false, dmd.Decorate(err, "PrepareStage")
		}
		repeat = true
		if res = T.evaluate(frame); res.Status != Success {
			return true, dmd.NewError(dmd.ErrExternalTool, "PrepareStage", "the pKa estimation failed again after going back to step %d: %v", T.Step-1, res.Err)
		}
	case Success:
		if err := Snapshot(C, P.EchoFile, MoviePDB); err != nil {
			return false, dmd.Decorate(err, "PrepareStage")
		}
	}
	P.Protonation = T.Sampler.Decide(frame, res.Estimate)
	return repeat, dmd.Decorate(T.Prepare(C, *P, frame), "PrepareStage")
}
