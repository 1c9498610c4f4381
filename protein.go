/*
 * protein.go, part of goDMD.
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
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Atom contains the data for one atom. An Atom belongs to exactly one Residue.
type Atom struct {
	Element string // lower case, "c", "zn"
	Coords  r3.Vec
	Name    string // as in the PDB file, without surrounding spaces
	Number  int    // serial number, reassigned by Reformat
	Residue *Residue
	// Bonds are references to the atoms bonded to this one. They are
	// filled by AssignBonds and never imply ownership.
	Bonds []*Atom
}

// NewAtom returns a new atom with the given name, element and coordinates.
// The element is normalized: "eh", which marks an extra (non-polar) hydrogen,
// becomes a plain "h".
func NewAtom(name, element string, coords r3.Vec) *Atom {
	el := strings.ToLower(strings.TrimSpace(element))
	if el == "eh" {
		el = "h"
	}
	return &Atom{Name: strings.TrimSpace(name), Element: el, Coords: coords}
}

// Chain returns the chain the atom's residue belongs to, or nil.
func (A *Atom) Chain() *Chain {
	if A.Residue == nil {
		return nil
	}
	return A.Residue.Chain
}

// Distance returns the distance, in A, between A and B.
func (A *Atom) Distance(B *Atom) float64 {
	return r3.Norm(r3.Sub(A.Coords, B.Coords))
}

func (A *Atom) String() string {
	return fmt.Sprintf("%s %v %s", A.Name, A.Coords, A.Element)
}

// Residue is an ordered set of atoms. The order of the atoms is the order
// in which they are written to files.
type Residue struct {
	Name   string
	Number int
	// InConstrNumber is the 1-based position of the residue in its chain,
	// which is how constraint files refer to residues.
	InConstrNumber int
	Atoms          []*Atom
	Chain          *Chain
}

// NewResidue returns an empty residue with the given name and number.
func NewResidue(name string, number int) *Residue {
	return &Residue{Name: name, Number: number}
}

// AddAtom appends at to the residue.
func (R *Residue) AddAtom(at *Atom) {
	at.Residue = R
	R.Atoms = append(R.Atoms, at)
}

// Atom returns the atom in the residue with the given name, or nil.
func (R *Residue) Atom(name string) *Atom {
	for _, v := range R.Atoms {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// IsAminoAcid returns true if the residue is a standard amino acid.
func (R *Residue) IsAminoAcid() bool {
	return IsAminoAcid(R.Name)
}

func (R *Residue) String() string {
	return fmt.Sprintf("%s %d", R.Name, R.Number)
}

// Chain is an ordered set of residues.
type Chain struct {
	Name     string
	Residues []*Residue
}

// NewChain returns an empty chain with the given name.
func NewChain(name string) *Chain {
	return &Chain{Name: name}
}

// AddResidue appends res to the chain.
func (C *Chain) AddResidue(res *Residue) {
	res.Chain = C
	C.Residues = append(C.Residues, res)
}

// Atoms returns all the atoms in the chain, in order.
func (C *Chain) Atoms() []*Atom {
	ret := make([]*Atom, 0, len(C.Residues)*8)
	for _, r := range C.Residues {
		ret = append(ret, r.Atoms...)
	}
	return ret
}

// Index returns the 1-based index of the chain letter in the alphabet
// (A is 1, B is 2...). It is used to refer to chains in constraint files.
func (C *Chain) Index() int {
	if C.Name == "" {
		return 0
	}
	return int(C.Name[0]-'A') + 1
}

func (C *Chain) String() string {
	return C.Name
}

// Protein is the whole structure. After Reformat is called, the last
// chain is the substrate chain, if the structure had metals or
// non-residues, and every residue is reachable through exactly one chain.
type Protein struct {
	Name   string //also the name of the file it is written to.
	Chains []*Chain
	// Metals and NonResidues are filled by Reformat.
	Metals      []*Atom
	NonResidues []*Residue
	// SubChain is the chain that holds the metals and non-residues,
	// also the last element in Chains. Nil if there is none.
	SubChain *Chain
}

// NewProtein returns a protein with the given name and chains.
func NewProtein(name string, chains []*Chain) *Protein {
	return &Protein{Name: name, Chains: chains}
}

// Chain returns the chain with the given name, or nil.
func (P *Protein) Chain(name string) *Chain {
	for _, c := range P.Chains {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Residue returns the residue with the given number in the given chain.
func (P *Protein) Residue(chain string, number int) (*Residue, error) {
	for _, c := range P.Chains {
		if c.Name != chain {
			continue
		}
		for _, r := range c.Residues {
			if r.Number == number {
				return r, nil
			}
		}
	}
	return nil, notFound("Residue", "residue %s:%d", chain, number)
}

// Atom returns the atom with the given name in the given residue and chain.
func (P *Protein) Atom(chain string, number int, name string) (*Atom, error) {
	r, err := P.Residue(chain, number)
	if err != nil {
		return nil, notFound("Atom", "atom %s:%d:%s", chain, number, name)
	}
	if at := r.Atom(name); at != nil {
		return at, nil
	}
	return nil, notFound("Atom", "atom %s:%d:%s", chain, number, name)
}

// Atoms returns all the atoms in the protein, in file order.
func (P *Protein) Atoms() []*Atom {
	ret := make([]*Atom, 0, 100)
	for _, c := range P.Chains {
		ret = append(ret, c.Atoms()...)
	}
	return ret
}

// Residues returns all the residues in the protein, in file order.
func (P *Protein) Residues() []*Residue {
	ret := make([]*Residue, 0, 100)
	for _, c := range P.Chains {
		ret = append(ret, c.Residues...)
	}
	return ret
}

// Len returns the number of atoms in the protein.
func (P *Protein) Len() int {
	n := 0
	for _, c := range P.Chains {
		for _, r := range c.Residues {
			n += len(r.Atoms)
		}
	}
	return n
}

// PolymerChains returns all chains except the substrate chain.
func (P *Protein) PolymerChains() []*Chain {
	ret := make([]*Chain, 0, len(P.Chains))
	for _, c := range P.Chains {
		if c != P.SubChain {
			ret = append(ret, c)
		}
	}
	return ret
}

func (P *Protein) String() string {
	return P.Name
}
