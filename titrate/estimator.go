/*
 * estimator.go, part of goDMD.
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

package titrate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmera/scu"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
)

// Key identifies a titratable group the way the pKa estimator does: group
// (a residue name, dmd.NTerminus or dmd.CTerminus), residue number and chain.
type Key struct {
	Group   string
	Residue int
	Chain   string
}

func (K Key) String() string {
	return fmt.Sprintf("%s%d%s", K.Group, K.Residue, K.Chain)
}

// Estimate contains the predictions of a pKa estimator.
type Estimate struct {
	PKa map[Key]float64
	// Buried is the buried fraction (0 to 1) of each group.
	Buried map[Key]float64
}

// Status is the outcome of an estimation.
type Status int

const (
	Success Status = iota
	// RollbackRequested means that the estimator failed on this structure, and
	// the previous good one should be used.
	RollbackRequested
	Fatal
)

func (S Status) String() string {
	switch S {
	case Success:
		return "success"
	case RollbackRequested:
		return "rollback requested"
	}
	return "fatal"
}

// Result is what an Estimator returns. Err is set when the status is not Success.
type Result struct {
	Status   Status
	Estimate Estimate
	Err      error
}

// Estimator predicts the pKa values of the titratable groups in a structure,
// which uses PDB atom names.
type Estimator interface {
	Estimate(frame *dmd.Protein) Result
}

// propkaInput is the file the structures are written to for propka.
const propkaInput = "_titr.pdb"

// Propka is an Estimator that runs propka in the working directory of C.
type Propka struct {
	C *engine.Context
}

// Estimate writes frame and runs propka on it. A propka run without predictions
// requests a rollback. Not being able to run propka is fatal.
func (P *Propka) Estimate(frame *dmd.Protein) Result {
	if err := dmd.PDBFileWrite(P.C.Path(propkaInput), frame); err != nil {
		return Result{Status: Fatal, Err: dmd.Decorate(err, "Estimate")}
	}
	pka, ok, err := engine.RunPropka(P.C, propkaInput)
	if err != nil {
		return Result{Status: Fatal, Err: dmd.Decorate(err, "Estimate")}
	}
	if !ok {
		return Result{Status: RollbackRequested, Err: dmd.NewError(dmd.ErrExternalTool, "Estimate", "propka gave no predictions")}
	}
	est, err := ParsePropka(P.C.Path(pka))
	if err != nil {
		return Result{Status: RollbackRequested, Err: dmd.Decorate(err, "Estimate")}
	}
	return Result{Status: Success, Estimate: est}
}

// ParsePropka reads the pKa values from the summary of a propka output file, and the
// buried fractions from its determinants section. A file without a summary is an
// ErrValue error.
func ParsePropka(name string) (Estimate, error) {
	est := Estimate{PKa: make(map[Key]float64), Buried: make(map[Key]float64)}
	fin, err := scu.NewMustReadFile(name)
	if err != nil {
		return est, dmd.Decorate(err, "ParsePropka")
	}
	defer fin.Close()
	const (
		none = iota
		determinants
		summary
	)
	section := none
	found := false
	for i := fin.Next(); i != "EOF"; i = fin.Next() {
		f := strings.Fields(i)
		switch {
		case len(f) >= 3 && f[0] == "RESIDUE" && f[1] == "pKa" && f[2] == "BURIED":
			section = determinants
			continue
		case len(f) >= 2 && f[0] == "Coupled" && f[1] == "residues":
			section = none
			continue
		case len(f) >= 2 && f[0] == "Group" && f[1] == "pKa":
			section = summary
			found = true
			continue
		case len(f) >= 2 && f[0] == "Free" && f[1] == "energy":
			section = none
			continue
		}
		if len(f) < 4 {
			continue
		}
		num, err := strconv.Atoi(f[1])
		if err != nil {
			continue
		}
		k := Key{Group: f[0], Residue: num, Chain: f[2]}
		switch section {
		case determinants:
			if len(f) >= 6 && f[5] == "%" {
				if b, err := strconv.ParseFloat(f[4], 64); err == nil {
					est.Buried[k] = b / 100
				}
			}
		case summary:
			if p, err := strconv.ParseFloat(f[3], 64); err == nil {
				est.PKa[k] = p
			}
		}
	}
	if !found {
		return est, dmd.NewError(dmd.ErrValue, "ParsePropka", "no pKa summary in %s", name)
	}
	return est, nil
}
