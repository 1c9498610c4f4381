/*
 * reformat.go, part of goDMD.
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
	"log"
	"sort"
	"strconv"
	"strings"
)

// DefaultMetal is the only metal species the DMD tools support.
const DefaultMetal = "zn"

// metalResidueName returns the residue name for the count-th metal of the given element.
func metalResidueName(element string, count int) (string, error) {
	var name string
	switch len(element) {
	case 1:
		name = fmt.Sprintf("%s%02d", strings.ToUpper(element), count)
	case 2:
		name = fmt.Sprintf("%s%d", strings.ToUpper(element), count)
	default:
		return "", NewError(ErrValue, "metalResidueName", "unusual element %q", element)
	}
	if len(name) != 3 {
		return "", NewError(ErrValue, "metalResidueName", "residue name %q for metal %s doesn't fit in 3 characters", name, element)
	}
	return name, nil
}

// nonResidueAtomName returns the name for the i-th (from 0) atom of a non-residue.
// It is an ErrValue error if the name doesn't fit in 4 characters.
func nonResidueAtomName(element string, i int) (string, error) {
	el := strings.ToUpper(element)
	name := el + strconv.Itoa(100+i)
	if len(name) > 4 && i < 100 {
		name = fmt.Sprintf("%s%02d", el, i)
	}
	if len(name) > 4 {
		return "", NewError(ErrValue, "nonResidueAtomName", "no unique 4-character name for atom %d (%s) of a non-residue", i+1, element)
	}
	return name, nil
}

// collectMetals returns the metal atoms in non amino acid residues, in file order.
func (P *Protein) collectMetals() []*Atom {
	var ret []*Atom
	for _, r := range P.Residues() {
		if r.IsAminoAcid() {
			continue
		}
		for _, at := range r.Atoms {
			if IsMetal(at.Element) {
				ret = append(ret, at)
			}
		}
	}
	return ret
}

// Reformat puts the protein in the layout the DMD tools require. Amino acid residues
// stay in their chains and are renumbered (residues from 1 across the protein, atoms
// from 1 in each chain). Chains left empty are removed and the rest get the letters
// from 'A' on. Metal atoms in other residues become one-atom residues, and the
// remaining non amino acid residues are moved, with new atom names, to a last
// substrate chain. Metals are sorted by element and, if metal is not empty, their
// element is set to metal, as the engine supports a single metal species.
// Finally, the atoms are relabeled to the engine's naming scheme.
// Reformat can be called again on an already reformatted protein without changes.
func (P *Protein) Reformat(metal string) error {
	metal = strings.ToLower(metal)
	metals := P.collectMetals()
	sort.SliceStable(metals, func(i, j int) bool { return metals[i].Element < metals[j].Element })
	//names are checked before anything is changed.
	metalnames := make([]string, len(metals))
	count := 0
	prev := ""
	for i, m := range metals {
		el := elementOf(m, metal)
		if el != prev {
			count = 0
			prev = el
		}
		count++
		var err error
		if metalnames[i], err = metalResidueName(el, count); err != nil {
			return Decorate(err, "Reformat")
		}
	}
	for _, r := range P.Residues() {
		if r.IsAminoAcid() {
			continue
		}
		i := 0
		for _, at := range r.Atoms {
			if IsMetal(at.Element) {
				continue
			}
			if _, err := nonResidueAtomName(at.Element, i); err != nil {
				return NewError(ErrValue, "Reformat", "residue %s: %s", r, err.Error())
			}
			i++
		}
	}
	chains := make([]*Chain, 0, len(P.Chains)+1)
	var nonres []*Residue
	letter := byte('A')
	resnum := 1
	for _, c := range P.Chains {
		kept := make([]*Residue, 0, len(c.Residues))
		for _, r := range c.Residues {
			if r.IsAminoAcid() {
				kept = append(kept, r)
				continue
			}
			rest := make([]*Atom, 0, len(r.Atoms))
			for _, at := range r.Atoms {
				if !IsMetal(at.Element) {
					rest = append(rest, at)
				}
			}
			r.Atoms = rest
			if len(rest) > 0 {
				nonres = append(nonres, r)
			} else if Verbose {
				log.Printf("Reformat: removing empty residue %s from chain %s", r, c.Name)
			}
		}
		if len(kept) == 0 {
			continue
		}
		if letter > 'Z' {
			return NewError(ErrValue, "Reformat", "too many chains")
		}
		c.Name = string(letter)
		letter++
		c.Residues = kept
		atnum := 1
		for i, r := range kept {
			r.Chain = c
			r.Number = resnum
			r.InConstrNumber = i + 1
			resnum++
			for _, at := range r.Atoms {
				at.Number = atnum
				atnum++
			}
		}
		chains = append(chains, c)
	}
	P.Metals = metals
	P.NonResidues = nonres
	P.SubChain = nil
	if len(metals) > 0 || len(nonres) > 0 {
		if letter > 'Z' {
			return NewError(ErrValue, "Reformat", "too many chains")
		}
		sub := NewChain(string(letter))
		atnum := 1
		for i, m := range metals {
			if metal != "" && m.Element != metal {
				log.Printf("Reformat: metal %s %s will be treated as %s", m.Element, m.Name, metal)
				m.Element = metal
			}
			m.Name = strings.ToUpper(m.Element)
			m.Number = atnum
			atnum++
			r := NewResidue(metalnames[i], len(sub.Residues)+1)
			r.AddAtom(m)
			sub.AddResidue(r)
			r.InConstrNumber = len(sub.Residues)
		}
		for _, r := range nonres {
			r.Number = len(sub.Residues) + 1
			for i, at := range r.Atoms {
				at.Name, _ = nonResidueAtomName(at.Element, i)
				at.Number = atnum
				atnum++
			}
			sub.AddResidue(r)
			r.InConstrNumber = len(sub.Residues)
		}
		chains = append(chains, sub)
		P.SubChain = sub
	}
	P.Chains = chains
	return Decorate(P.Relabel(SchemeDMD), "Reformat")
}

// elementOf returns the element at will have after the metal coercion.
func elementOf(at *Atom, metal string) string {
	if metal != "" {
		return metal
	}
	return at.Element
}
