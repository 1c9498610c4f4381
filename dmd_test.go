/*
 * dmd_test.go, part of goDMD.
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

package dmd

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type testAtom struct {
	rec, name, res, chain string
	resid                 int
	el                    string
}

func pdbText(atoms []testAtom) string {
	var b strings.Builder
	for i, a := range atoms {
		name := " " + a.name
		if len(a.name) == 4 {
			name = a.name
		}
		fmt.Fprintf(&b, "%-6s%5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f  1.00  0.00          %2s\n",
			a.rec, i+1, name, a.res, a.chain, a.resid, float64(i)*1.111, float64(i)*-0.5, 2.25+float64(i), a.el)
	}
	b.WriteString("END\n")
	return b.String()
}

func ala(chain string, resid int) []testAtom {
	ret := make([]testAtom, 0, 5)
	for _, n := range []string{"N", "CA", "C", "O", "CB"} {
		ret = append(ret, testAtom{"ATOM", n, "ALA", chain, resid, n[:1]})
	}
	return ret
}

// sample is a 2-chain structure with a zinc bound to chain A, a magnesium and
// an acetate in chain B and a chain made only of waters.
func sample() []testAtom {
	var at []testAtom
	at = append(at, ala("A", 10)...)
	at = append(at, testAtom{"HETATM", "ZN", "ZN", "A", 11, "ZN"})
	at = append(at, ala("A", 12)...)
	at = append(at, ala("A", 13)...)
	at = append(at, testAtom{"HETATM", "MG", "MG", "B", 1, "MG"})
	at = append(at, testAtom{"HETATM", "C1", "ACT", "B", 2, "C"})
	at = append(at, testAtom{"HETATM", "O1", "ACT", "B", 2, "O"})
	at = append(at, ala("B", 3)...)
	at = append(at, testAtom{"HETATM", "C2", "ACT", "B", 4, "C"})
	at = append(at, testAtom{"HETATM", "O", "HOH", "C", 1, "O"})
	at = append(at, testAtom{"HETATM", "O", "HOH", "C", 2, "O"})
	return at
}

func readSample(Te *testing.T) *Protein {
	p, err := PDBRead(strings.NewReader(pdbText(sample())), "sample.pdb")
	require.NoError(Te, err)
	return p
}

func TestPDBRead(Te *testing.T) {
	p := readSample(Te)
	require.Len(Te, p.Chains, 3)
	require.Len(Te, p.Chains[0].Residues, 4)
	require.Len(Te, p.Chains[1].Residues, 4)
	require.Equal(Te, 27, p.Len())
	zn, err := p.Atom("A", 11, "ZN")
	require.NoError(Te, err)
	require.Equal(Te, "zn", zn.Element)
	ca, err := p.Atom("A", 10, "CA")
	require.NoError(Te, err)
	require.Equal(Te, "c", ca.Element)
	require.InDelta(Te, 1.111, ca.Coords.X, 1e-9)
}

func TestEhIsHydrogen(Te *testing.T) {
	at := NewAtom(" HB1", "Eh", r3.Vec{})
	require.Equal(Te, "h", at.Element)
	require.Equal(Te, "HB1", at.Name)
}

func TestLookupNotFound(Te *testing.T) {
	p := readSample(Te)
	_, err := p.Residue("A", 99)
	require.True(Te, errors.Is(err, ErrNotFound))
	_, err = p.Atom("A", 10, "XX")
	require.True(Te, errors.Is(err, ErrNotFound))
	_, err = p.Atom("Q", 10, "CA")
	require.True(Te, errors.Is(err, ErrNotFound))
}

func TestReformatLayout(Te *testing.T) {
	p := readSample(Te)
	require.NoError(Te, p.Reformat(""))
	names := []string{}
	for _, c := range p.Chains {
		names = append(names, c.Name)
	}
	require.Equal(Te, []string{"A", "B", "C"}, names)
	require.Equal(Te, p.Chains[2], p.SubChain)
	//polymer residues numbered across the protein
	nums := []int{}
	for _, r := range p.Residues()[:4] {
		nums = append(nums, r.Number)
	}
	require.Equal(Te, []int{1, 2, 3, 4}, nums)
	require.Equal(Te, 1, p.Chains[1].Residues[0].InConstrNumber)
	//atoms numbered per chain
	require.Equal(Te, 1, p.Chains[1].Residues[0].Atoms[0].Number)
	require.Equal(Te, 15, p.Chains[0].Residues[2].Atoms[4].Number)
	//metals sorted by element, then the non-residues in their original order
	var resnames []string
	for _, r := range p.SubChain.Residues {
		resnames = append(resnames, r.Name)
	}
	require.Equal(Te, []string{"MG1", "ZN1", "ACT", "ACT", "HOH", "HOH"}, resnames)
	require.Len(Te, p.Metals, 2)
	require.Len(Te, p.NonResidues, 4)
	acet := p.SubChain.Residues[2]
	require.Equal(Te, "C100", acet.Atoms[0].Name)
	require.Equal(Te, "O101", acet.Atoms[1].Name)
	require.Equal(Te, 3, acet.Number)
	last := p.SubChain.Residues[5].Atoms[0]
	require.Equal(Te, 7, last.Number)
}

func TestReformatCoercesMetal(Te *testing.T) {
	p := readSample(Te)
	require.NoError(Te, p.Reformat(DefaultMetal))
	require.Equal(Te, "ZN1", p.SubChain.Residues[0].Name)
	require.Equal(Te, "ZN2", p.SubChain.Residues[1].Name)
	for _, m := range p.Metals {
		require.Equal(Te, "zn", m.Element)
	}
}

func snapshot(p *Protein) []string {
	var ret []string
	for _, c := range p.Chains {
		for _, r := range c.Residues {
			for _, a := range r.Atoms {
				ret = append(ret, fmt.Sprintf("%s %s %d %s %d", c.Name, r.Name, r.Number, a.Name, a.Number))
			}
		}
	}
	return ret
}

func TestReformatIdempotent(Te *testing.T) {
	p := readSample(Te)
	require.NoError(Te, p.Reformat(DefaultMetal))
	first := snapshot(p)
	require.NoError(Te, p.Reformat(DefaultMetal))
	require.Equal(Te, first, snapshot(p))
}

// Non-residues at the start and end of a chain, and next to each other.
func TestReformatRemovesBoundaryResidues(Te *testing.T) {
	var at []testAtom
	at = append(at, testAtom{"HETATM", "O", "HOH", "A", 1, "O"})
	at = append(at, testAtom{"HETATM", "O", "HOH", "A", 2, "O"})
	at = append(at, ala("A", 3)...)
	at = append(at, testAtom{"HETATM", "CU", "CU", "A", 4, "CU"})
	at = append(at, testAtom{"HETATM", "FE", "FE", "A", 5, "FE"})
	at = append(at, ala("A", 6)...)
	at = append(at, testAtom{"HETATM", "O", "HOH", "A", 7, "O"})
	p, err := PDBRead(strings.NewReader(pdbText(at)), "b.pdb")
	require.NoError(Te, err)
	require.NoError(Te, p.Reformat(""))
	require.Len(Te, p.Chains, 2)
	require.Len(Te, p.Chains[0].Residues, 2)
	for _, r := range p.Chains[0].Residues {
		require.Equal(Te, "ALA", r.Name)
	}
	var resnames []string
	for _, r := range p.SubChain.Residues {
		resnames = append(resnames, r.Name)
	}
	require.Equal(Te, []string{"CU1", "FE1", "HOH", "HOH", "HOH"}, resnames)
}

func TestMetalNameTooLong(Te *testing.T) {
	var at []testAtom
	at = append(at, ala("A", 1)...)
	for i := 0; i < 10; i++ {
		at = append(at, testAtom{"HETATM", "ZN", "ZN", "A", 2 + i, "ZN"})
	}
	p, err := PDBRead(strings.NewReader(pdbText(at)), "z.pdb")
	require.NoError(Te, err)
	err = p.Reformat(DefaultMetal)
	require.True(Te, errors.Is(err, ErrValue))
	_, err = metalResidueName("abc", 1)
	require.True(Te, errors.Is(err, ErrValue))
	name, err := metalResidueName("k", 3)
	require.NoError(Te, err)
	require.Equal(Te, "K03", name)
}

func TestRoundTrip(Te *testing.T) {
	p := readSample(Te)
	require.NoError(Te, p.Reformat(DefaultMetal))
	var buf bytes.Buffer
	require.NoError(Te, PDBWrite(&buf, p))
	require.Equal(Te, 2+len(p.SubChain.Residues), strings.Count(buf.String(), "TER\n"))
	require.True(Te, strings.HasSuffix(buf.String(), "ENDMDL\n"))
	q, err := PDBRead(&buf, "again.pdb")
	require.NoError(Te, err)
	require.Equal(Te, len(p.Chains), len(q.Chains))
	require.Equal(Te, len(p.Residues()), len(q.Residues()))
	pa, qa := p.Atoms(), q.Atoms()
	require.Equal(Te, len(pa), len(qa))
	for i := range pa {
		d := r3.Sub(pa[i].Coords, qa[i].Coords)
		require.True(Te, math.Abs(d.X) < 5e-4 && math.Abs(d.Y) < 5e-4 && math.Abs(d.Z) < 5e-4)
		require.Equal(Te, pa[i].Name, qa[i].Name)
		require.Equal(Te, pa[i].Element, qa[i].Element)
	}
}

func TestRelabel(Te *testing.T) {
	var at []testAtom
	at = append(at, ala("A", 1)...)
	for _, n := range []string{"N", "CA", "C", "O", "CB", "CG1", "CG2", "CD1", "H", "HG21"} {
		at = append(at, testAtom{"ATOM", n, "ILE", "A", 2, n[:1]})
	}
	at = append(at, ala("A", 3)...)
	at = append(at, testAtom{"ATOM", "OXT", "ALA", "A", 3, "O"})
	p, err := PDBRead(strings.NewReader(pdbText(at)), "r.pdb")
	require.NoError(Te, err)
	require.NoError(Te, p.Relabel(SchemeDMD))
	ile := p.Chains[0].Residues[1]
	require.NotNil(Te, ile.Atom("CD"))
	require.NotNil(Te, ile.Atom("HN"))
	require.NotNil(Te, ile.Atom("1HG2"))
	require.NotNil(Te, p.Chains[0].Residues[2].Atom("OXT"))
	require.NoError(Te, p.Relabel(SchemePDB))
	require.NotNil(Te, ile.Atom("CD1"))
	require.NotNil(Te, ile.Atom("H"))
	require.NotNil(Te, ile.Atom("HG21"))
	ile.Atoms[0].Name = "XX"
	err = p.Relabel(SchemeDMD)
	require.True(Te, errors.Is(err, ErrNotFound))
	require.True(Te, errors.Is(p.Relabel("amber"), ErrValidation))
}

func TestRelabelTrailingLigands(Te *testing.T) {
	var at []testAtom
	at = append(at, ala("A", 1)...)
	at = append(at, ala("A", 2)...)
	at = append(at, testAtom{"ATOM", "OXT", "ALA", "A", 2, "O"})
	at = append(at, testAtom{"HETATM", "O", "HOH", "A", 3, "O"})
	at = append(at, testAtom{"HETATM", "C1", "ACT", "A", 4, "C"})
	p, err := PDBRead(strings.NewReader(pdbText(at)), "t.pdb")
	require.NoError(Te, err)
	require.NoError(Te, p.Relabel(SchemePDB))
	require.NoError(Te, p.Relabel(SchemeDMD))
	require.NotNil(Te, p.Chains[0].Residues[1].Atom("OXT"))
	require.NotNil(Te, p.Chains[0].Residues[3].Atom("C1"))
}

func TestNonResidueAtomNames(Te *testing.T) {
	name, err := nonResidueAtomName("c", 5)
	require.NoError(Te, err)
	require.Equal(Te, "C105", name)
	name, err = nonResidueAtomName("cl", 0)
	require.NoError(Te, err)
	require.Equal(Te, "CL00", name)
	name, err = nonResidueAtomName("cl", 99)
	require.NoError(Te, err)
	require.Equal(Te, "CL99", name)
	_, err = nonResidueAtomName("cl", 100)
	require.True(Te, errors.Is(err, ErrValue))
	_, err = nonResidueAtomName("c", 900)
	require.True(Te, errors.Is(err, ErrValue))

	//a ligand with more chlorines than names is left as it was.
	var at []testAtom
	at = append(at, ala("A", 1)...)
	for i := 0; i < 101; i++ {
		at = append(at, testAtom{"HETATM", "CL", "BIG", "A", 2, "CL"})
	}
	p, err := PDBRead(strings.NewReader(pdbText(at)), "big.pdb")
	require.NoError(Te, err)
	err = p.Reformat(DefaultMetal)
	require.True(Te, errors.Is(err, ErrValue))
	require.Len(Te, p.Chains, 1)
	require.Equal(Te, "CL", p.Chains[0].Residues[1].Atoms[100].Name)
}

func TestLastFrame(Te *testing.T) {
	dir := Te.TempDir()
	frame := pdbText(ala("A", 1))
	frame = strings.TrimSuffix(frame, "END\n")
	shifted := strings.Replace(frame, "   2.250", "  10.000", 1)
	traj := "MODEL 1\n" + frame + "ENDMDL\nMODEL 2\n" + shifted + "ENDMDL\n"
	name := filepath.Join(dir, "movie.pdb")
	require.NoError(Te, os.WriteFile(name, []byte(traj), 0o644))
	p, err := LastFrame(name, "last.pdb")
	require.NoError(Te, err)
	require.Equal(Te, 5, p.Len())
	require.InDelta(Te, 10.0, p.Atoms()[0].Coords.Z, 1e-9)
	require.NoError(Te, os.WriteFile(name, []byte("REMARK nothing\n"), 0o644))
	_, err = LastFrame(name, "last.pdb")
	require.Error(Te, err)
}

func TestBondGraph(Te *testing.T) {
	//a chain of carbons 1.5 A apart, plus an isolated oxygen.
	var atoms []*Atom
	for i := 0; i < 4; i++ {
		atoms = append(atoms, NewAtom(fmt.Sprintf("C%d", i), "c", r3.Vec{X: 1.5 * float64(i)}))
	}
	atoms = append(atoms, NewAtom("O", "o", r3.Vec{Y: 20}))
	require.NoError(Te, AssignBonds(atoms))
	require.Len(Te, atoms[1].Bonds, 2)
	g := NewBondGraph(atoms)
	n := g.Neighbors(atoms[0], 2)
	require.Equal(Te, []*Atom{atoms[1], atoms[2]}, n)
	require.Len(Te, g.Fragments(), 2)
	require.Nil(Te, g.Neighbors(NewAtom("X", "c", r3.Vec{}), 1))
	require.Len(Te, Within(atoms[0], atoms, 1.6), 1)
}
