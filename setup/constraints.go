/*
 * constraints.go, part of goDMD.
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
	"bufio"
	"fmt"
	"os"
	"sort"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/params"
)

// Near-metal restraints: N, O and S atoms closer than ligandCutoff to a metal
// are its ligands. Their distance to the metal is kept within ligandTol, while the
// distances to the atoms bonded to the ligands, and among ligands, are kept
// within neighborTol.
const (
	ligandCutoff = 3.0
	ligandTol    = 0.05
	neighborTol  = 0.1
)

// Ref returns the reference to at used in constraint files: the index of its
// chain, the position of its residue in the chain and its name.
func Ref(at *dmd.Atom) string {
	return fmt.Sprintf("%d.%d.%s", at.Chain().Index(), at.Residue.InConstrNumber, at.Name)
}

// Directive is a protonation change for one heteroatom.
type Directive struct {
	Protonate bool
	Atom      *dmd.Atom
}

func (D Directive) String() string {
	if D.Protonate {
		return "Protonate " + Ref(D.Atom)
	}
	return "Deprotonate " + Ref(D.Atom)
}

// Restraint keeps the distance between two atoms within Tol of its initial value.
type Restraint struct {
	A, B *dmd.Atom
	Tol  float64
}

func (R Restraint) String() string {
	return fmt.Sprintf("AtomPairRel %s %s -%.2f +%.2f", Ref(R.A), Ref(R.B), R.Tol, R.Tol)
}

// Resolved contains the references of a job configuration, resolved to the
// atoms of a structure.
type Resolved struct {
	Frozen       []*dmd.Atom
	Protonation  []Directive
	Displacement []Restraint
}

// Resolve finds the frozen chains, residues and atoms, the protonation changes and the
// displacement restraints of P in prot. A reference to something that is not in prot
// is an ErrNotFound error.
func Resolve(P params.Parameters, prot *dmd.Protein) (*Resolved, error) {
	R := new(Resolved)
	seen := make(map[*dmd.Atom]bool)
	freeze := func(atoms ...*dmd.Atom) {
		for _, at := range atoms {
			if !seen[at] {
				seen[at] = true
				R.Frozen = append(R.Frozen, at)
			}
		}
	}
	for _, c := range P.Frozen.Chains {
		chain := prot.Chain(c)
		if chain == nil {
			return nil, dmd.NewError(dmd.ErrNotFound, "Resolve", "frozen chain %s not in the structure", c)
		}
		freeze(chain.Atoms()...)
	}
	for _, ref := range P.Frozen.Residues {
		res, err := ref.Resolve(prot)
		if err != nil {
			return nil, dmd.Decorate(err, "Resolve")
		}
		freeze(res.Atoms...)
	}
	for _, ref := range P.Frozen.Atoms {
		at, err := ref.Resolve(prot)
		if err != nil {
			return nil, dmd.Decorate(err, "Resolve")
		}
		freeze(at)
	}
	for _, p := range P.Protonation {
		d, err := resolveProtonation(p, prot)
		if err != nil {
			return nil, dmd.Decorate(err, "Resolve")
		}
		R.Protonation = append(R.Protonation, d)
	}
	for _, d := range P.Displacement {
		a, err := d.A.Resolve(prot)
		if err != nil {
			return nil, dmd.Decorate(err, "Resolve")
		}
		b, err := d.B.Resolve(prot)
		if err != nil {
			return nil, dmd.Decorate(err, "Resolve")
		}
		R.Displacement = append(R.Displacement, Restraint{A: a, B: b, Tol: d.Tolerance})
	}
	return R, nil
}

// resolveProtonation finds the heteroatom a protonation change refers to. Without
// a variant, the atom is taken from the protonation table of the residue.
func resolveProtonation(p params.Protonation, prot *dmd.Protein) (Directive, error) {
	res, err := prot.Residue(p.Chain, p.Residue)
	if err != nil {
		return Directive{}, err
	}
	d := Directive{Protonate: p.Action == params.Protonate}
	name := p.Variant
	if name == "" {
		site, ok := dmd.Site(res.Name)
		if !ok {
			return d, dmd.NewError(dmd.ErrNotFound, "resolveProtonation", "residue %s %s:%d is not titratable", res.Name, p.Chain, p.Residue)
		}
		name = site.Default(d.Protonate)
	}
	if d.Atom = res.Atom(name); d.Atom == nil {
		return d, dmd.NewError(dmd.ErrNotFound, "resolveProtonation", "atom %s:%d:%s", p.Chain, p.Residue, name)
	}
	return d, nil
}

// MetalRestraints returns the restraints that keep the coordination of each
// metal in prot, which has to be reformatted.
func MetalRestraints(prot *dmd.Protein) ([]Restraint, error) {
	if len(prot.Metals) == 0 {
		return nil, nil
	}
	var nonmetals, donors []*dmd.Atom
	order := make(map[*dmd.Atom]int)
	for _, at := range prot.Atoms() {
		if dmd.IsMetal(at.Element) {
			continue
		}
		order[at] = len(nonmetals)
		nonmetals = append(nonmetals, at)
		if at.Element == "n" || at.Element == "o" || at.Element == "s" {
			donors = append(donors, at)
		}
	}
	if err := dmd.AssignBonds(nonmetals); err != nil {
		return nil, dmd.Decorate(err, "MetalRestraints")
	}
	g := dmd.NewBondGraph(nonmetals)
	var ret []Restraint
	type pair [2]*dmd.Atom
	done := make(map[pair]bool)
	add := func(a, b *dmd.Atom, tol float64) {
		if done[pair{a, b}] || done[pair{b, a}] {
			return
		}
		done[pair{a, b}] = true
		ret = append(ret, Restraint{A: a, B: b, Tol: tol})
	}
	for _, m := range prot.Metals {
		ligands := dmd.Within(m, donors, ligandCutoff)
		for _, l := range ligands {
			add(m, l, ligandTol)
		}
		for _, l := range ligands {
			neigh := g.Neighbors(l, 1)
			sort.Slice(neigh, func(i, j int) bool { return order[neigh[i]] < order[neigh[j]] })
			for _, n := range neigh {
				if n.Element != "h" {
					add(m, n, neighborTol)
				}
			}
		}
		for i, l := range ligands {
			for _, l2 := range ligands[i+1:] {
				add(l, l2, neighborTol)
			}
		}
	}
	return ret, nil
}

// WriteConstraints writes the constraint file name for the reformatted prot:
// frozen atoms (and the non-residues, if P asks so), protonation changes,
// restraints for the metal ligands, if P asks so, and displacement restraints.
func WriteConstraints(name string, P params.Parameters, R *Resolved, prot *dmd.Protein) error {
	frozen := append([]*dmd.Atom(nil), R.Frozen...)
	if P.FreezeNonResidues {
		seen := make(map[*dmd.Atom]bool, len(frozen))
		for _, at := range frozen {
			seen[at] = true
		}
		for _, r := range prot.NonResidues {
			for _, at := range r.Atoms {
				if !seen[at] {
					frozen = append(frozen, at)
				}
			}
		}
	}
	var restraints []Restraint
	if P.RestrictMetalLigands {
		var err error
		if restraints, err = MetalRestraints(prot); err != nil {
			return dmd.Decorate(err, "WriteConstraints")
		}
	}
	restraints = append(restraints, R.Displacement...)
	f, err := os.Create(name)
	if err != nil {
		return dmd.Decorate(err, "WriteConstraints")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, at := range frozen {
		fmt.Fprintf(w, "Static %s\n", Ref(at))
	}
	for _, d := range R.Protonation {
		fmt.Fprintln(w, d)
	}
	for _, r := range restraints {
		fmt.Fprintln(w, r)
	}
	return dmd.Decorate(w.Flush(), "WriteConstraints")
}
