/*
 * bonds.go, part of goDMD.
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
	"sort"
)

// constants from DOI:10.1186/1758-2946-3-33
const (
	tooclose = 0.63
	bondtol  = 0.45
)

// covalentRadius returns the covalent radius for the element. Metals
// missing from the table get the radius of zinc.
func covalentRadius(element string) (float64, error) {
	if r, ok := symbolCovrad[element]; ok {
		return r, nil
	}
	if IsMetal(element) {
		return symbolCovrad["zn"], nil
	}
	return 0, NewError(ErrNotFound, "covalentRadius", "no covalent radius for element %q", element)
}

func removeBond(at, other *Atom) {
	ret := at.Bonds[:0]
	for _, v := range at.Bonds {
		if v != other {
			ret = append(ret, v)
		}
	}
	at.Bonds = ret
}

// AssignBonds fills the Bonds of the given atoms based on a simple distance
// criterium, similar to that described in DOI:10.1186/1758-2946-3-33.
// Previous bonds of the atoms are discarded. Atoms with more bonds than
// their element allows lose the longest ones.
func AssignBonds(atoms []*Atom) error {
	radii := make([]float64, len(atoms))
	for i, at := range atoms {
		at.Bonds = nil
		var err error
		if radii[i], err = covalentRadius(at.Element); err != nil {
			return Decorate(err, "AssignBonds")
		}
	}
	for i, at1 := range atoms {
		for j := i + 1; j < len(atoms); j++ {
			at2 := atoms[j]
			d := at1.Distance(at2)
			if d < radii[i]+radii[j]+bondtol && d > tooclose {
				at1.Bonds = append(at1.Bonds, at2)
				at2.Bonds = append(at2.Bonds, at1)
			}
		}
	}
	//Now we check that no atom has too many bonds.
	for _, at := range atoms {
		max := symbolMaxBonds[at.Element]
		if max == 0 {
			continue
		}
		sort.Slice(at.Bonds, func(i, j int) bool { return at.Distance(at.Bonds[i]) < at.Distance(at.Bonds[j]) })
		for len(at.Bonds) > max {
			longest := at.Bonds[len(at.Bonds)-1]
			at.Bonds = at.Bonds[:len(at.Bonds)-1]
			removeBond(longest, at)
		}
	}
	return nil
}

// Within returns the atoms in atoms, other than at, closer than cutoff to at.
func Within(at *Atom, atoms []*Atom, cutoff float64) []*Atom {
	var ret []*Atom
	for _, v := range atoms {
		if v != at && at.Distance(v) < cutoff {
			ret = append(ret, v)
		}
	}
	return ret
}
