/*
 * protonation.go, part of goDMD.
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

import "sort"

// Titratable group names for the chain termini, as the pKa estimator reports them.
const (
	NTerminus = "N+"
	CTerminus = "C-"
)

// ProtonationSite lists the atoms that define the protonation state of a
// titratable group. Names follow the PDB (version 3) convention.
type ProtonationSite struct {
	// Protons maps each titratable proton to the heteroatom that carries it.
	Protons map[string]string
	// Full is the number of titratable protons in the protonated form.
	Full int
	// Heteroatoms used by protonation directives that don't name one.
	Protonate, Deprotonate string
}

var protonationSites = map[string]ProtonationSite{
	"ASP":     {Protons: map[string]string{"HD1": "OD1", "HD2": "OD2"}, Full: 1, Protonate: "OD2", Deprotonate: "OD2"},
	"GLU":     {Protons: map[string]string{"HE1": "OE1", "HE2": "OE2"}, Full: 1, Protonate: "OE2", Deprotonate: "OE2"},
	"HIS":     {Protons: map[string]string{"HD1": "ND1", "HE2": "NE2"}, Full: 2, Protonate: "ND1", Deprotonate: "ND1"},
	"LYS":     {Protons: map[string]string{"HZ1": "NZ", "HZ2": "NZ", "HZ3": "NZ"}, Full: 3, Protonate: "NZ", Deprotonate: "NZ"},
	"CYS":     {Protons: map[string]string{"HG": "SG"}, Full: 1, Protonate: "SG", Deprotonate: "SG"},
	"TYR":     {Protons: map[string]string{"HH": "OH"}, Full: 1, Protonate: "OH", Deprotonate: "OH"},
	NTerminus: {Protons: map[string]string{"H1": "N", "H2": "N", "H3": "N"}, Full: 3, Protonate: "N", Deprotonate: "N"},
	CTerminus: {Protons: map[string]string{"HXT": "OXT"}, Full: 1, Protonate: "OXT", Deprotonate: "OXT"},
}

// Site returns the protonation site of a titratable group (a residue name,
// NTerminus or CTerminus).
func Site(group string) (ProtonationSite, bool) {
	s, ok := protonationSites[group]
	return s, ok
}

// Heteroatoms returns the names of the atoms that can carry the titratable
// protons of the site, sorted.
func (S ProtonationSite) Heteroatoms() []string {
	ret := make([]string, 0, 2)
	for _, h := range S.Protons {
		if !isInString(ret, h) {
			ret = append(ret, h)
		}
	}
	sort.Strings(ret)
	return ret
}

// Default returns the heteroatom a directive with the given action (as
// in "protonate") refers to when it names none.
func (S ProtonationSite) Default(protonate bool) string {
	if protonate {
		return S.Protonate
	}
	return S.Deprotonate
}
