/*
 * relabel.go, part of goDMD.
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
	"log"
	"strings"
)

// Naming schemes for Relabel. The engine scheme is the one the DMD tools expect.
const (
	SchemeDMD = "dmd"
	SchemePDB = "pdb"
)

// the index of each scheme in the name columns.
var schemeColumn = map[string]int{SchemeDMD: 0, SchemePDB: 1}

// Atom names per residue in the PDB (version 3) convention. The engine's
// column is derived from these by dmdName, so both columns stay aligned.
var pdbNames = map[string][]string{
	"ALA": {"N", "CA", "C", "O", "CB", "H", "HA", "HB1", "HB2", "HB3"},
	"ARG": {"N", "CA", "C", "O", "CB", "CG", "CD", "NE", "CZ", "NH1", "NH2", "H", "HA", "HB2", "HB3", "HG2", "HG3", "HD2", "HD3", "HE", "HH11", "HH12", "HH21", "HH22"},
	"ASN": {"N", "CA", "C", "O", "CB", "CG", "OD1", "ND2", "H", "HA", "HB2", "HB3", "HD21", "HD22"},
	"ASP": {"N", "CA", "C", "O", "CB", "CG", "OD1", "OD2", "H", "HA", "HB2", "HB3", "HD1", "HD2"},
	"CYS": {"N", "CA", "C", "O", "CB", "SG", "H", "HA", "HB2", "HB3", "HG"},
	"GLN": {"N", "CA", "C", "O", "CB", "CG", "CD", "OE1", "NE2", "H", "HA", "HB2", "HB3", "HG2", "HG3", "HE21", "HE22"},
	"GLU": {"N", "CA", "C", "O", "CB", "CG", "CD", "OE1", "OE2", "H", "HA", "HB2", "HB3", "HG2", "HG3", "HE1", "HE2"},
	"GLY": {"N", "CA", "C", "O", "H", "HA2", "HA3"},
	"HIS": {"N", "CA", "C", "O", "CB", "CG", "ND1", "CD2", "CE1", "NE2", "H", "HA", "HB2", "HB3", "HD1", "HD2", "HE1", "HE2"},
	"ILE": {"N", "CA", "C", "O", "CB", "CG1", "CG2", "CD1", "H", "HA", "HB", "HG12", "HG13", "HG21", "HG22", "HG23", "HD11", "HD12", "HD13"},
	"LEU": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2", "H", "HA", "HB2", "HB3", "HG", "HD11", "HD12", "HD13", "HD21", "HD22", "HD23"},
	"LYS": {"N", "CA", "C", "O", "CB", "CG", "CD", "CE", "NZ", "H", "HA", "HB2", "HB3", "HG2", "HG3", "HD2", "HD3", "HE2", "HE3", "HZ1", "HZ2", "HZ3"},
	"MET": {"N", "CA", "C", "O", "CB", "CG", "SD", "CE", "H", "HA", "HB2", "HB3", "HG2", "HG3", "HE1", "HE2", "HE3"},
	"PHE": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2", "CE1", "CE2", "CZ", "H", "HA", "HB2", "HB3", "HD1", "HD2", "HE1", "HE2", "HZ"},
	"PRO": {"N", "CA", "C", "O", "CB", "CG", "CD", "HA", "HB2", "HB3", "HG2", "HG3", "HD2", "HD3"},
	"SER": {"N", "CA", "C", "O", "CB", "OG", "H", "HA", "HB2", "HB3", "HG"},
	"THR": {"N", "CA", "C", "O", "CB", "OG1", "CG2", "H", "HA", "HB", "HG1", "HG21", "HG22", "HG23"},
	"TRP": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2", "NE1", "CE2", "CE3", "CZ2", "CZ3", "CH2", "H", "HA", "HB2", "HB3", "HD1", "HE1", "HE3", "HZ2", "HZ3", "HH2"},
	"TYR": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2", "CE1", "CE2", "CZ", "OH", "H", "HA", "HB2", "HB3", "HD1", "HD2", "HE1", "HE2", "HH"},
	"VAL": {"N", "CA", "C", "O", "CB", "CG1", "CG2", "H", "HA", "HB", "HG11", "HG12", "HG13", "HG21", "HG22", "HG23"},
}

// Extra atoms for terminal residues, engine column first.
var (
	nTermNames = [2][]string{{"HN1", "HN2", "HN3"}, {"H1", "H2", "H3"}}
	cTermNames = [2][]string{{"OXT", "HXT"}, {"OXT", "HXT"}}
)

// dmdName translates a PDB name to the engine's, which uses the old
// style for hydrogens (digit first) and the HN amide hydrogen.
func dmdName(resname, name string) string {
	switch {
	case resname == "ILE" && name == "CD1":
		return "CD"
	case name == "H":
		return "HN"
	case len(name) >= 3 && name[0] == 'H' && name[len(name)-1] >= '0' && name[len(name)-1] <= '9':
		return name[len(name)-1:] + name[:len(name)-1]
	}
	return name
}

// nameColumns returns both aligned columns of names for a residue, with the
// terminal variants added when needed. It returns nil for unknown residues.
func nameColumns(resname string, nterm, cterm bool) [2][]string {
	var cols [2][]string
	pdb, ok := pdbNames[resname]
	if !ok {
		return cols
	}
	cols[1] = append(cols[1], pdb...)
	for _, v := range pdb {
		cols[0] = append(cols[0], dmdName(resname, v))
	}
	for i := range cols {
		if nterm {
			cols[i] = append(cols[i], nTermNames[i]...)
		}
		if cterm {
			cols[i] = append(cols[i], cTermNames[i]...)
		}
	}
	return cols
}

func indexOf(s []string, t string) int {
	for i, v := range s {
		if v == t {
			return i
		}
	}
	return -1
}

// relabelResidue renames the atoms of res to the scheme in column target.
func relabelResidue(res *Residue, target int, nterm, cterm bool) error {
	cols := nameColumns(res.Name, nterm, cterm)
	if cols[0] == nil {
		return notFound("relabelResidue", "no naming table for residue %s %d", res.Name, res.Number)
	}
	for _, col := range cols {
		idx := make([]int, len(res.Atoms))
		match := true
		for i, at := range res.Atoms {
			idx[i] = indexOf(col, at.Name)
			if idx[i] < 0 {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		for i, at := range res.Atoms {
			at.Name = cols[target][idx[i]]
		}
		return nil
	}
	names := make([]string, 0, len(res.Atoms))
	for _, at := range res.Atoms {
		names = append(names, at.Name)
	}
	return notFound("relabelResidue", "atom names of %s %d don't match any scheme: %s", res.Name, res.Number, strings.Join(names, " "))
}

// Relabel renames the atoms of every amino acid residue in the protein to the given
// naming scheme (SchemeDMD or SchemePDB). The first and last amino acid of each
// polymer chain are treated as N- and C-terminal, whatever other residues the chain
// holds. It fails with ErrNotFound if the atom names of a residue don't all belong
// to one scheme.
func (P *Protein) Relabel(scheme string) error {
	target, ok := schemeColumn[strings.ToLower(scheme)]
	if !ok {
		return NewError(ErrValidation, "Relabel", "unknown naming scheme %q", scheme)
	}
	for _, c := range P.PolymerChains() {
		var aa []*Residue
		for _, r := range c.Residues {
			if r.IsAminoAcid() {
				aa = append(aa, r)
			}
		}
		for i, r := range aa {
			if err := relabelResidue(r, target, i == 0, i == len(aa)-1); err != nil {
				log.Printf("Relabel: chain %s: %s", c.Name, err.Error())
				return Decorate(err, "Relabel")
			}
		}
	}
	return nil
}
