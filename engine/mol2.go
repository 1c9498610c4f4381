/*
 * mol2.go, part of goDMD.
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

package engine

import (
	"os"
	"strings"

	dmd "github.com/rmera/godmd"
)

// MakeMol2 writes the residue to name.pdb and converts it with babel to name.mol2, where
// name is the residue name. babel has to report the conversion of 1 molecule, otherwise
// it is an ErrExternalTool error. With retype, the hydrogens not bonded to N or O get the
// type Eh. It returns the name of the mol2 file, relative to the working directory.
func MakeMol2(C *Context, res *dmd.Residue, retype bool) (string, error) {
	pdbname := res.Name + ".pdb"
	mol2name := res.Name + ".mol2"
	f, err := os.Create(C.Path(pdbname))
	if err != nil {
		return "", dmd.Decorate(err, "MakeMol2")
	}
	err = dmd.ResiduePDBWrite(f, res)
	f.Close()
	if err != nil {
		return "", dmd.Decorate(err, "MakeMol2")
	}
	out, err := C.run(nil, C.Programs.Babel, pdbname, mol2name)
	if err != nil {
		return "", dmd.Decorate(err, "MakeMol2")
	}
	if !strings.Contains(out, "1 molecule converted") {
		return "", dmd.NewError(dmd.ErrExternalTool, "MakeMol2", "could not create the %s mol2 file", res.Name)
	}
	if retype {
		if err := RetypeHydrogens(C.Path(mol2name)); err != nil {
			return "", dmd.Decorate(err, "MakeMol2")
		}
	}
	os.Remove(C.Path(pdbname))
	return mol2name, nil
}

// fieldSpan returns the start and end of the n-th (from 0) whitespace separated field of line.
func fieldSpan(line string, n int) (int, int, bool) {
	i, count := 0, -1
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) || line[i] == '\n' || line[i] == '\r' {
			break
		}
		start := i
		for i < len(line) && line[i] != ' ' && line[i] != '\t' && line[i] != '\n' && line[i] != '\r' {
			i++
		}
		count++
		if count == n {
			return start, i, true
		}
	}
	return 0, 0, false
}

// RetypeHydrogens sets the mol2 atom type Eh to the hydrogens in the file name that
// are not bonded to a nitrogen or an oxygen. The rest of the file is not changed.
func RetypeHydrogens(name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return dmd.Decorate(err, "RetypeHydrogens")
	}
	lines := strings.SplitAfter(string(data), "\n")
	section := ""
	hydrogens := make(map[string]int) //atom id to line index
	polarHeavy := make(map[string]bool)
	polarH := make(map[string]bool)
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "@<TRIPOS>") {
			section = t
			continue
		}
		f := strings.Fields(t)
		switch {
		case section == "@<TRIPOS>ATOM" && len(f) >= 6:
			typ := f[5]
			if typ == "H" {
				hydrogens[f[0]] = i
			} else if strings.HasPrefix(typ, "N.") || strings.HasPrefix(typ, "O.") {
				polarHeavy[f[0]] = true
			}
		case section == "@<TRIPOS>BOND" && len(f) >= 4:
			a, b := f[1], f[2]
			if polarHeavy[a] {
				polarH[b] = true
			}
			if polarHeavy[b] {
				polarH[a] = true
			}
		}
	}
	for id, i := range hydrogens {
		if polarH[id] {
			continue
		}
		s, e, ok := fieldSpan(lines[i], 5)
		if !ok {
			continue
		}
		//keeps the columns aligned when there is room.
		if e+1 < len(lines[i]) && lines[i][e] == ' ' && lines[i][e+1] == ' ' {
			e++
		}
		lines[i] = lines[i][:s] + "Eh" + lines[i][e:]
	}
	return dmd.Decorate(os.WriteFile(name, []byte(strings.Join(lines, "")), 0o644), "RetypeHydrogens")
}
