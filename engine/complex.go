/*
 * complex.go, part of goDMD.
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
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rmera/scu"

	dmd "github.com/rmera/godmd"
)

// maxStateRetries is the number of times the bond lists are reordered
// when complex fails to produce the state file.
const maxStateRetries = 2

func (C *Context) complexArgs(pdb string) []string {
	return []string{"-P", C.ParameterDir, "-I", pdb, "-T", TopparamFile, "-D", "200", "-p", ParamFile,
		"-s", StateFile, "-C", InConstrFile, "-c", OutConstrFile}
}

// MakeStateFile runs complex on the structure pdb to produce the state file.
// complex sometimes crashes for some substrates. When that happens, the bond
// lists in the mol2 files of topparam are sorted by their first atom, then
// by the second, and complex is run again. It is an ErrExternalTool error if
// there is still no state file after that.
func MakeStateFile(C *Context, pdb string) error {
	os.Remove(C.Path(StateFile))
	if _, err := C.run(nil, C.Programs.Complex, C.complexArgs(pdb)...); err != nil {
		return dmd.Decorate(err, "MakeStateFile")
	}
	if !C.Exists(StateFile) {
		log.Printf("MakeStateFile: could not make the state file the first time, reordering the bond lists of the mol2 files")
	}
	for attempt := 1; !C.Exists(StateFile) && attempt <= maxStateRetries; attempt++ {
		log.Printf("MakeStateFile: complex fix attempt %d", attempt)
		mol2s, err := topparamMol2s(C.Path(TopparamFile))
		if err != nil {
			return dmd.Decorate(err, "MakeStateFile")
		}
		for _, m := range mol2s {
			if err := ReorderBonds(C.Path(m), attempt); err != nil {
				return dmd.Decorate(err, "MakeStateFile")
			}
		}
		if _, err := C.run(nil, C.Programs.Complex, C.complexArgs(pdb)...); err != nil {
			return dmd.Decorate(err, "MakeStateFile")
		}
	}
	if !C.Exists(StateFile) {
		log.Printf("MakeStateFile: could not create the state file, something is very wrong!")
		return dmd.NewError(dmd.ErrExternalTool, "MakeStateFile", "%s did not produce the %s file", C.Programs.Complex, StateFile)
	}
	return nil
}

// topparamMol2s returns the mol2 files listed in a topparam file.
func topparamMol2s(name string) ([]string, error) {
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil, nil
	}
	fin, err := scu.NewMustReadFile(name)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	var ret []string
	for i := fin.Next(); i != "EOF"; i = fin.Next() {
		f := strings.Fields(i)
		if len(f) >= 3 && f[0] == "MOL" {
			ret = append(ret, f[2])
		}
	}
	return ret, nil
}

// ReorderBonds sorts the bond section of the mol2 file name by the given column
// (1 or 2, the atoms in the bond).
func ReorderBonds(name string, column int) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return dmd.Decorate(err, "ReorderBonds")
	}
	lines := strings.SplitAfter(string(data), "\n")
	var save []string
	var bonds [][]string
	inbonds := false
	for _, l := range lines {
		if l == "" {
			continue
		}
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "@<TRIPOS>") {
			inbonds = strings.HasPrefix(t, "@<TRIPOS>BOND")
			save = append(save, l)
			continue
		}
		if inbonds {
			f := strings.Fields(t)
			if len(f) >= 4 {
				bonds = append(bonds, f)
				continue
			}
		}
		if inbonds && t == "" {
			continue
		}
		if !inbonds {
			save = append(save, l)
		}
	}
	key := func(b []string) int {
		v, err := strconv.Atoi(b[column])
		if err != nil {
			return 0
		}
		return v
	}
	sort.SliceStable(bonds, func(i, j int) bool { return key(bonds[i]) < key(bonds[j]) })
	f, err := os.Create(name)
	if err != nil {
		return dmd.Decorate(err, "ReorderBonds")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	written := false
	for _, l := range save {
		if !strings.HasSuffix(l, "\n") {
			l += "\n"
		}
		w.WriteString(l)
		if strings.HasPrefix(strings.TrimSpace(l), "@<TRIPOS>BOND") && !written {
			for _, b := range bonds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b[0], b[1], b[2], b[3])
			}
			written = true
		}
	}
	return dmd.Decorate(w.Flush(), "ReorderBonds")
}

// MakeMovie converts the engine's movie file to the multi-model PDB file output,
// using the initial structure initial.
func MakeMovie(C *Context, initial, movie, output string) error {
	os.Remove(C.Path(output))
	_, err := C.run(nil, C.Programs.Movie, C.ParameterDir, initial, TopparamFile, movie, output, InConstrFile)
	if err != nil {
		return dmd.Decorate(err, "MakeMovie")
	}
	if !C.Exists(output) {
		return dmd.NewError(dmd.ErrExternalTool, "MakeMovie", "%s did not produce %s", C.Programs.Movie, output)
	}
	return nil
}
