/*
 * atomicdata.go, part of goDMD.
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

// Elements are kept in lower case across the library, "zn", "c", etc.
// They are capitalized only when written to a file.

// aminoAcids contains the residue names that DMD treats as polymer residues.
var aminoAcids = []string{"ALA", "ARG", "ASN", "ASP", "CYS", "GLN", "GLU", "GLY", "HIS", "ILE",
	"LEU", "LYS", "MET", "PHE", "PRO", "SER", "THR", "TRP", "TYR", "VAL"}

// All metals through bismuth.
var metals = []string{"li", "be", "na", "mg", "al", "k", "ca", "sc", "ti", "v", "cr", "mn", "fe",
	"co", "ni", "cu", "zn", "ga", "rb", "sr", "y", "zr", "nb", "mo", "tc", "ru", "rh", "pd", "ag",
	"cd", "in", "sn", "cs", "ba", "la", "ce", "pr", "nd", "pm", "sm", "eu", "gd", "tb", "dy", "ho",
	"er", "tm", "yb", "lu", "hf", "ta", "w", "re", "os", "ir", "pt", "au", "hg", "tl", "pb", "bi"}

// IsAminoAcid returns true if name is the 3-letter code of a standard amino acid.
func IsAminoAcid(name string) bool {
	return isInString(aminoAcids, name)
}

// IsMetal returns true if the (lower case) element is a metal.
func IsMetal(element string) bool {
	return isInString(metals, element)
}

// A map for assigning covalent radii to elements
// Values from Cordero et al., 2008 (DOI:10.1039/B801115J)
// Note that just common "bio-elements" are present
var symbolCovrad = map[string]float64{
	"h":  0.4, // 0.31, but H only ever has one bond, the extra ones get eliminated later.
	"c":  0.76,
	"o":  0.66,
	"n":  0.71,
	"p":  1.07,
	"s":  1.05,
	"se": 1.2,
	"k":  2.03,
	"ca": 1.76,
	"mg": 1.41,
	"cl": 1.02,
	"na": 1.66,
	"cu": 1.32,
	"zn": 1.22,
	"co": 1.5,
	"fe": 1.52,
	"mn": 1.61,
	"cr": 1.39,
	"ni": 1.24,
	"si": 1.11,
	"be": 0.96,
	"f":  0.57,
	"br": 1.2,
	"i":  1.39,
}

// Maximum number of bonds for an element. Elements not
// in the map are not checked.
var symbolMaxBonds = map[string]int{
	"h":  1,
	"c":  4,
	"o":  2,
	"f":  1,
	"br": 1,
	"i":  1,
}

func isInString(container []string, test string) bool {
	for _, i := range container {
		if test == i {
			return true
		}
	}
	return false
}
