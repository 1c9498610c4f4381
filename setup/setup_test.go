/*
 * setup_test.go, part of goDMD.
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

package setup

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/internal/fake"
	"github.com/rmera/godmd/params"
)

func constraintLines(Te *testing.T, C *engine.Context) []string {
	Te.Helper()
	b, err := os.ReadFile(C.Path(engine.InConstrFile))
	require.NoError(Te, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func jobParameters() params.Parameters {
	P := params.Default()
	P.Frozen.Residues = []params.ResRef{{Chain: "A", Residue: 6}}
	P.Protonation = []params.Protonation{{Chain: "A", Residue: 5, Action: params.Protonate}}
	P.Displacement = []params.Displacement{{A: params.AtomRef{Chain: "A", Residue: 5, Atom: "CA"},
		B: params.AtomRef{Chain: "A", Residue: 7, Atom: "CA"}, Tolerance: 0.5}}
	P.FreezeNonResidues = true
	P.RestrictMetalLigands = true
	return P
}

func TestResolveNotFound(Te *testing.T) {
	for name, mod := range map[string]func(*params.Parameters){
		"chain":        func(P *params.Parameters) { P.Frozen.Chains = []string{"Q"} },
		"residue":      func(P *params.Parameters) { P.Frozen.Residues = []params.ResRef{{Chain: "A", Residue: 99}} },
		"atom":         func(P *params.Parameters) { P.Frozen.Atoms = []params.AtomRef{{Chain: "A", Residue: 5, Atom: "XX"}} },
		"titratable":   func(P *params.Parameters) { P.Protonation[0].Residue = 6 },
		"variant":      func(P *params.Parameters) { P.Protonation[0].Variant = "OG" },
		"displacement": func(P *params.Parameters) { P.Displacement[0].B.Chain = "C" },
	} {
		P := jobParameters()
		mod(&P)
		_, err := Resolve(P, fake.Protein(Te))
		require.True(Te, errors.Is(err, dmd.ErrNotFound), name)
	}
}

func TestMetalRestraints(Te *testing.T) {
	prot := fake.Protein(Te)
	require.NoError(Te, prot.Reformat("zn"))
	r, err := MetalRestraints(prot)
	require.NoError(Te, err)
	var lines []string
	for _, v := range r {
		lines = append(lines, v.String())
	}
	require.Equal(Te, []string{
		"AtomPairRel 2.1.ZN 1.1.NE2 -0.05 +0.05",
		"AtomPairRel 2.1.ZN 1.1.CD2 -0.10 +0.10",
		"AtomPairRel 2.1.ZN 1.1.CE1 -0.10 +0.10",
	}, lines)
}

func TestFull(Te *testing.T) {
	C := fake.Context(Te)
	prot := fake.Protein(Te)
	require.NoError(Te, Full(C, jobParameters(), prot))
	for _, f := range []string{engine.InitialPDB, engine.TopparamFile, engine.StateFile, engine.InConstrFile, "ACT.mol2"} {
		require.True(Te, C.Exists(f), f)
	}
	for _, f := range []string{"echo", "restart", "movie", trialPDB, trialEcho, trialRestart, trialMovie, engine.StartFile} {
		require.False(Te, C.Exists(f), f)
	}
	top, err := os.ReadFile(C.Path(engine.TopparamFile))
	require.NoError(Te, err)
	require.Equal(Te, "MOL ACT ./ACT.mol2\n", string(top))

	lines := constraintLines(Te, C)
	require.Equal(Te, []string{
		"Static 1.2.N", "Static 1.2.CA", "Static 1.2.C", "Static 1.2.O",
		"Static 2.2.C100", "Static 2.2.O101", "Static 2.2.C102",
		"Protonate 1.1.ND1",
		"AtomPairRel 2.1.ZN 1.1.NE2 -0.05 +0.05",
		"AtomPairRel 2.1.ZN 1.1.CD2 -0.10 +0.10",
		"AtomPairRel 2.1.ZN 1.1.CE1 -0.10 +0.10",
		"AtomPairRel 1.1.CA 1.3.CA -0.50 +0.50",
	}, lines)

	initial, err := dmd.PDBFileRead(C.Path(engine.InitialPDB))
	require.NoError(Te, err)
	require.Len(Te, initial.Chains, 2)
	require.Equal(Te, prot.Len(), initial.Len())
}

func TestFullKeepsCheckpoint(Te *testing.T) {
	C := fake.Context(Te)
	for _, f := range []string{"echo", "restart", "movie"} {
		require.NoError(Te, os.WriteFile(C.Path(f), []byte(f+" 40\n"), 0o644))
	}
	require.NoError(Te, Full(C, jobParameters(), fake.Protein(Te)))
	for _, f := range []string{"echo", "restart", "movie"} {
		b, err := os.ReadFile(C.Path(f))
		require.NoError(Te, err)
		require.Equal(Te, f+" 40\n", string(b))
	}
}

func TestFullDisconnectedSubstrate(Te *testing.T) {
	C := fake.Context(Te)
	prot := fake.Protein(Te)
	c2, err := prot.Atom("A", 9, "C2")
	require.NoError(Te, err)
	c2.Coords.X += 10
	err = Full(C, jobParameters(), prot)
	require.True(Te, errors.Is(err, dmd.ErrValue))
	require.False(Te, C.Exists("ACT.mol2"))
}

func TestFullValidatesFirst(Te *testing.T) {
	C := fake.Context(Te)
	P := jobParameters()
	P.Time = 0
	err := Full(C, P, fake.Protein(Te))
	require.True(Te, errors.Is(err, dmd.ErrValidation))
	require.False(Te, C.Exists(engine.InitialPDB))

	P = jobParameters()
	P.Frozen.Chains = []string{"X"}
	err = Full(C, P, fake.Protein(Te))
	require.True(Te, errors.Is(err, dmd.ErrNotFound))
	require.False(Te, C.Exists(engine.InitialPDB))
}

func TestFullComplexFails(Te *testing.T) {
	C := fake.Context(Te, "FAKE_COMPLEX_FAILS=10")
	err := Full(C, jobParameters(), fake.Protein(Te))
	require.True(Te, errors.Is(err, dmd.ErrExternalTool))
	//partial files stay for diagnosis.
	require.True(Te, C.Exists(engine.InConstrFile))
}

func TestTitration(Te *testing.T) {
	C := fake.Context(Te)
	require.NoError(Te, Full(C, jobParameters(), fake.Protein(Te)))
	require.NoError(Te, os.Remove(C.Path("ACT.mol2")))
	frame, err := dmd.PDBFileRead(C.Path(engine.InitialPDB))
	require.NoError(Te, err)
	P := params.Default()
	P.Protonation = []params.Protonation{
		{Chain: "A", Residue: 1, Action: params.Deprotonate, Variant: "ND1"},
		{Chain: "A", Residue: 3, Action: params.Protonate},
	}
	require.NoError(Te, Titration(C, P, frame))
	require.Equal(Te, []string{"Deprotonate 1.1.ND1", "Protonate 1.3.OD2"}, constraintLines(Te, C))
	require.True(Te, C.Exists(engine.StateFile))
	require.False(Te, C.Exists("ACT.mol2"))
}
