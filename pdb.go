/*
 * pdb.go, part of goDMD.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

//This tries to guess a chemical element symbol from a PDB atom name. Mostly based on AMBER names.
//It only deals with some common bio-elements.
func symbolFromName(name string) string {
	if name == "" {
		return ""
	}
	if len(name) == 4 || name[0] == 'H' {
		return "h"
	}
	switch name {
	case "CU", "CO", "CL", "NA", "SE", "ZN", "MG", "FE", "MN", "CA":
		//CA is calcium only out of amino acids. The caller deals with that.
		return strings.ToLower(name)
	}
	switch name[0] {
	case 'C', 'N', 'O', 'P', 'S':
		return strings.ToLower(name[:1])
	}
	return ""
}

// readPDBLine parses a valid ATOM or HETATM line. It returns the atom, the residue name,
// the chain name and the residue number.
func readPDBLine(line string, lineno int) (*Atom, string, string, int, error) {
	if len(line) < 54 {
		return nil, "", "", 0, NewError(ErrValue, "readPDBLine", "line %d too short", lineno)
	}
	err := make([]error, 5)
	var c r3.Vec
	number, err0 := strconv.Atoi(strings.TrimSpace(line[6:11]))
	err[0] = err0
	name := strings.TrimSpace(line[12:16])
	resname := strings.TrimSpace(line[17:20])
	chain := strings.TrimSpace(line[21:22])
	resid, err1 := strconv.Atoi(strings.TrimSpace(line[22:26]))
	err[1] = err1
	c.X, err[2] = strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
	c.Y, err[3] = strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
	c.Z, err[4] = strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
	for _, e := range err {
		if e != nil {
			return nil, "", "", 0, NewError(ErrValue, "readPDBLine", "line %d: %s", lineno, e.Error())
		}
	}
	element := ""
	if len(line) >= 78 {
		element = strings.TrimSpace(line[76:78])
	}
	if element == "" {
		element = symbolFromName(name)
		if element == "ca" && IsAminoAcid(resname) {
			element = "c"
		}
	}
	at := NewAtom(name, element, c)
	at.Number = number
	return at, resname, chain, resid, nil
}

// PDBRead reads the ATOM and HETATM records from pdb into a protein with the given name.
// A new chain is started each time the chain identifier changes, and a new residue
// each time the residue number changes. Any other record is ignored, so in a multi-model
// file all the models are read into the same protein. Use LastFrame for trajectories.
func PDBRead(pdb io.Reader, name string) (*Protein, error) {
	prot := NewProtein(name, nil)
	var chain *Chain
	var res *Residue
	lineno := 0
	r := bufio.NewReader(pdb)
	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, Decorate(err, "PDBRead")
		}
		if line == "" && err == io.EOF {
			break
		}
		lineno++
		if strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM") {
			at, resname, chainname, resid, err2 := readPDBLine(strings.TrimRight(line, "\r\n"), lineno)
			if err2 != nil {
				return nil, Decorate(err2, "PDBRead")
			}
			if chain == nil || chain.Name != chainname {
				chain = NewChain(chainname)
				prot.Chains = append(prot.Chains, chain)
				res = nil
			}
			if res == nil || res.Number != resid {
				res = NewResidue(resname, resid)
				chain.AddResidue(res)
				res.InConstrNumber = len(chain.Residues)
			}
			res.AddAtom(at)
		}
		if err == io.EOF {
			break
		}
	}
	return prot, nil
}

// PDBFileRead reads the PDB file pdbname. The protein gets the file name as its name.
func PDBFileRead(pdbname string) (*Protein, error) {
	pdbfile, err := os.Open(pdbname)
	if err != nil {
		return nil, Decorate(err, "PDBFileRead")
	}
	defer pdbfile.Close()
	p, err := PDBRead(pdbfile, pdbname)
	if err != nil {
		return nil, Decorate(err, "PDBFileRead")
	}
	return p, nil
}

// LastFrame reads a multi-model PDB file (MODEL/ENDMDL blocks, as produced by
// the movie conversion) and returns the last complete model as a protein named name.
// A file without MODEL records is read as a single frame.
func LastFrame(trajname string, name string) (*Protein, error) {
	f, err := os.Open(trajname)
	if err != nil {
		return nil, Decorate(err, "LastFrame")
	}
	defer f.Close()
	var last, current []string
	inmodel := false
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for s.Scan() {
		line := s.Text()
		switch {
		case strings.HasPrefix(line, "MODEL"):
			inmodel = true
			current = current[:0]
		case strings.HasPrefix(line, "ENDMDL"):
			if len(current) > 0 {
				last = append(last[:0], current...)
			}
			current = current[:0]
			inmodel = false
		case strings.HasPrefix(line, "ATOM"), strings.HasPrefix(line, "HETATM"):
			current = append(current, line)
		}
	}
	if err := s.Err(); err != nil {
		return nil, Decorate(err, "LastFrame")
	}
	if inmodel || len(last) == 0 {
		//unterminated model, or no models at all.
		if len(current) > 0 && len(last) == 0 {
			last = current
		}
	}
	if len(last) == 0 {
		return nil, NewError(ErrValue, "LastFrame", "no atoms in %s", trajname)
	}
	return PDBRead(strings.NewReader(strings.Join(last, "\n")+"\n"), name)
}

// pdbAtomName formats an atom name for columns 13-16. Names of 4 characters, and names
// starting with a 2-letter element symbol, start at column 13, the rest at column 14.
func pdbAtomName(at *Atom) string {
	if len(at.Name) >= 4 {
		return at.Name[:4]
	}
	if len(at.Element) == 2 && strings.HasPrefix(at.Name, strings.ToUpper(at.Element)) {
		return fmt.Sprintf("%-4s", at.Name)
	}
	return fmt.Sprintf(" %-3s", at.Name)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func writePDBAtom(out io.Writer, at *Atom) error {
	first := "HETATM"
	resname, resid, chain := "UNK", 0, " "
	if r := at.Residue; r != nil {
		resname, resid = r.Name, r.Number
		if r.IsAminoAcid() {
			first = "ATOM"
		}
		if r.Chain != nil && r.Chain.Name != "" {
			chain = r.Chain.Name[:1]
		}
	}
	_, err := fmt.Fprintf(out, "%-6s%5d %4s %3s %1s%4d    %8.3f%8.3f%8.3f  1.00  0.00          %2s\n",
		first, at.Number, pdbAtomName(at), resname, chain, resid, at.Coords.X, at.Coords.Y, at.Coords.Z, capitalize(at.Element))
	return err
}

// PDBWrite writes the protein in PDB format to out. A TER record follows each polymer
// chain and each residue of the substrate chain. The file ends with ENDMDL.
func PDBWrite(out io.Writer, prot *Protein) error {
	w := bufio.NewWriter(out)
	for _, c := range prot.Chains {
		sub := c == prot.SubChain
		for _, r := range c.Residues {
			for _, at := range r.Atoms {
				if err := writePDBAtom(w, at); err != nil {
					return Decorate(err, "PDBWrite")
				}
			}
			if sub {
				fmt.Fprint(w, "TER\n")
			}
		}
		if !sub {
			fmt.Fprint(w, "TER\n")
		}
	}
	fmt.Fprint(w, "ENDMDL\n")
	return Decorate(w.Flush(), "PDBWrite")
}

// PDBFileWrite writes the protein to the file pdbname.
func PDBFileWrite(pdbname string, prot *Protein) error {
	out, err := os.Create(pdbname)
	if err != nil {
		return Decorate(err, "PDBFileWrite")
	}
	defer out.Close()
	return Decorate(PDBWrite(out, prot), "PDBFileWrite")
}

// ResiduePDBWrite writes a single residue, followed by TER and ENDMDL, as the input
// for structure conversion programs.
func ResiduePDBWrite(out io.Writer, res *Residue) error {
	for _, at := range res.Atoms {
		if err := writePDBAtom(out, at); err != nil {
			return Decorate(err, "ResiduePDBWrite")
		}
	}
	_, err := fmt.Fprint(out, "TER\nENDMDL\n")
	return Decorate(err, "ResiduePDBWrite")
}
