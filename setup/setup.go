/*
 * setup.go, part of goDMD.
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

// Package setup prepares the input files the DMD engine needs for a job:
// the initial structure, the topology parameters of the substrates, the
// constraint file and the state file.
package setup

import (
	"bufio"
	"fmt"
	"log"
	"os"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/params"
)

// Verbose enables some extra logging.
var Verbose bool

// Files of the trial run. They are not the job's own, so that setting a job up
// again leaves its checkpoint alone.
const (
	trialPDB     = "_trial.pdb"
	trialEcho    = "_trial_echo"
	trialRestart = "_trial_restart"
	trialMovie   = "_trial_movie"
)

// WriteTopparam converts each substrate residue of the reformatted prot to
// mol2 and lists them in the topparam file. Residues with the same name
// share one entry. A residue whose atoms are not all bonded together is an
// ErrValue error.
func WriteTopparam(C *engine.Context, prot *dmd.Protein) error {
	f, err := os.Create(C.Path(engine.TopparamFile))
	if err != nil {
		return dmd.Decorate(err, "WriteTopparam")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	seen := make(map[string]bool)
	for _, r := range prot.NonResidues {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		//the bonds are assigned again, for the whole protein, with the constraints.
		//Elements without a covalent radius are left for babel to deal with.
		if err := dmd.AssignBonds(r.Atoms); err != nil {
			log.Printf("WriteTopparam: connectivity of %s not checked: %s", r, err.Error())
		} else if frags := dmd.NewBondGraph(r.Atoms).Fragments(); len(frags) > 1 {
			return dmd.NewError(dmd.ErrValue, "WriteTopparam", "%s is made of %d disconnected fragments, it should be split into residues", r, len(frags))
		}
		mol2, err := engine.MakeMol2(C, r, true)
		if err != nil {
			return dmd.Decorate(err, "WriteTopparam")
		}
		if Verbose {
			log.Printf("WriteTopparam: %s converted to %s", r.Name, mol2)
		}
		fmt.Fprintf(w, "MOL %s ./%s\n", r.Name, mol2)
	}
	return dmd.Decorate(w.Flush(), "WriteTopparam")
}

// Full prepares a new job in the working directory of C from the parameters P
// and the structure prot, which is reformatted. The references in P are
// resolved before anything is written. The setup is checked with a short trial
// run, whose files are removed afterwards.
func Full(C *engine.Context, P params.Parameters, prot *dmd.Protein) error {
	if err := P.Validate(); err != nil {
		return dmd.Decorate(err, "Full")
	}
	R, err := Resolve(P, prot)
	if err != nil {
		return dmd.Decorate(err, "Full")
	}
	if err := prot.Reformat(C.Metal); err != nil {
		return dmd.Decorate(err, "Full")
	}
	prot.Name = engine.InitialPDB
	if err := dmd.PDBFileWrite(C.Path(engine.InitialPDB), prot); err != nil {
		return dmd.Decorate(err, "Full")
	}
	log.Printf("Full: making the topparam file")
	if err := WriteTopparam(C, prot); err != nil {
		return dmd.Decorate(err, "Full")
	}
	log.Printf("Full: making the constraint file")
	if err := WriteConstraints(C.Path(engine.InConstrFile), P, R, prot); err != nil {
		return dmd.Decorate(err, "Full")
	}
	log.Printf("Full: making the state file")
	if err := engine.MakeStateFile(C, engine.InitialPDB); err != nil {
		return dmd.Decorate(err, "Full")
	}
	return dmd.Decorate(trial(C, P), "Full")
}

// trial runs the engine for one time unit and converts the movie to a structure.
func trial(C *engine.Context, P params.Parameters) error {
	T := P.Clone()
	T.Time = 1
	T.EchoFile, T.RestartFile, T.MovieFile = trialEcho, trialRestart, trialMovie
	log.Printf("trial: testing the setup with a short run")
	if err := engine.RunDMD(C, T, 0, false); err != nil {
		return err
	}
	if err := engine.MakeMovie(C, engine.InitialPDB, T.MovieFile, trialPDB); err != nil {
		return err
	}
	if _, err := dmd.LastFrame(C.Path(trialPDB), "trial"); err != nil {
		return dmd.NewError(dmd.ErrExternalTool, "trial", "the trial run produced no structure: %s", err.Error())
	}
	for _, name := range []string{T.EchoFile, T.RestartFile, T.MovieFile, trialPDB, engine.StartFile, engine.OutputFile} {
		os.Remove(C.Path(name))
	}
	return nil
}

// Titration prepares the next titration step from the structure frame: the frame
// becomes the initial structure, and the constraint and state files are built again
// with the protonation changes in P. The topparam file is kept as it is.
func Titration(C *engine.Context, P params.Parameters, frame *dmd.Protein) error {
	R, err := Resolve(P, frame)
	if err != nil {
		return dmd.Decorate(err, "Titration")
	}
	if err := frame.Reformat(C.Metal); err != nil {
		return dmd.Decorate(err, "Titration")
	}
	frame.Name = engine.InitialPDB
	if err := dmd.PDBFileWrite(C.Path(engine.InitialPDB), frame); err != nil {
		return dmd.Decorate(err, "Titration")
	}
	if err := WriteConstraints(C.Path(engine.InConstrFile), P, R, frame); err != nil {
		return dmd.Decorate(err, "Titration")
	}
	if Verbose {
		log.Printf("Titration: %d protonation changes", len(R.Protonation))
	}
	return dmd.Decorate(engine.MakeStateFile(C, engine.InitialPDB), "Titration")
}
