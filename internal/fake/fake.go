/*
 * fake.go, part of goDMD.
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

// Package fake writes small shell scripts that stand in for the external
// programs of a DMD job in tests. They read and write the same files as
// the real programs, with made up contents.
package fake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
)

// Program names used in the configuration returned by Tools.
const (
	DMD     = "fake_pdmd"
	Complex = "fake_complex"
	Movie   = "fake_movie"
	Babel   = "fake_babel"
	Propka  = "fake_propka"
)

// dmdScript writes two echo records (start and end of the run), the restart and movie
// files, and logs its arguments to dmd_calls. FAKE_DMD_SLEEP makes it slower.
const dmdScript = `
start=$(awk '/^START_TIME/ {print $2}' dmd_start)
max=$(awk '/^MAX_TIME/ {print $2}' dmd_start)
echofile=$(awk '/^ECHO_FILE/ {print $2}' dmd_start)
restart=$(awk '/^RESTART_FILE/ {print $2}' dmd_start)
movie=$(awk '/^MOVIE_FILE/ {print $2}' dmd_start)
echo "$*" >> dmd_calls
if [ -n "$FAKE_DMD_SLEEP" ]; then sleep "$FAKE_DMD_SLEEP"; fi
[ -f "$echofile" ] || echo "# time temp pressure x potential kinetic" > "$echofile"
echo "$start.000 0.100 1.000 0.000 -100.000 50.000" >> "$echofile"
echo "$max.000 0.120 1.200 0.000 -102.000 52.000" >> "$echofile"
echo "restart $max" > "$restart"
echo "movie $max" >> "$movie"
echo "fake dmd from $start to $max"
`

// complexScript makes the state, param and outConstr files, unless FAKE_COMPLEX_FAILS
// is set to a number of calls that must fail first.
const complexScript = `
n=$(cat complex_calls 2>/dev/null || echo 0)
n=$((n+1))
echo $n > complex_calls
if [ -n "$FAKE_COMPLEX_FAILS" ] && [ $n -le "$FAKE_COMPLEX_FAILS" ]; then
  echo "Segmentation fault"
  exit 139
fi
touch state param outConstr
echo "complex done"
`

// movieScript wraps the atoms of the initial structure ($2) in a single model,
// written to $5.
const movieScript = `
{ echo "MODEL        1"; grep -E '^(ATOM|HETATM)' "$2"; echo "ENDMDL"; } > "$5"
`

// babelScript writes a two-atom mol2 file for any input.
const babelScript = `
cat > "$2" <<EOF
@<TRIPOS>MOLECULE
FAKE
 2 1 0 0 0
SMALL
GASTEIGER

@<TRIPOS>ATOM
      1 C1          0.0000    0.0000    0.0000 C.3     1  FAKE1       0.0000
      2 H1          1.0000    0.0000    0.0000 H       1  FAKE1       0.0000
@<TRIPOS>BOND
     1     1     2    1
EOF
echo "1 molecule converted" >&2
`

// propkaScript writes a .pka file next to its input with a pKa of FAKE_PKA (default 4.0)
// and a buried fraction of 10% for every titratable residue. If the file named by
// FAKE_PROPKA_FAIL exists, it is removed and nothing is written.
const propkaScript = `
if [ -n "$FAKE_PROPKA_FAIL" ] && [ -f "$FAKE_PROPKA_FAIL" ]; then
  rm -f "$FAKE_PROPKA_FAIL"
  echo "propka crashed"
  exit 1
fi
pka=${FAKE_PKA:-4.0}
out="${1%.pdb}.pka"
{
echo "---------  -----   ------   ---------------------    --------------    --------------    --------------"
echo "RESIDUE    pKa    BURIED     REGULAR      RE        SIDECHAIN          BACKBONE        COULOMBIC"
awk -v pka="$pka" '/^ATOM/ && substr($0,13,4) ~ /CA/ { r=substr($0,18,3); if (r=="ASP"||r=="GLU"||r=="HIS"||r=="LYS"||r=="CYS"||r=="TYR") printf "%s %3d %s %6.2f    10 %%    0.00    0    0.00 0    0.00 0    0.00 0    0.00 0\n", r, substr($0,23,4)+0, substr($0,22,1), pka }' "$1"
echo "Coupled residues (marked *) were detected.Please rerun PropKa with the --display-coupled-residues"
echo "SUMMARY OF THIS PREDICTION"
echo "       Group      pKa  model-pKa   ligand atom-type"
awk -v pka="$pka" '/^ATOM/ && substr($0,13,4) ~ /CA/ { r=substr($0,18,3); if (r=="ASP"||r=="GLU"||r=="HIS"||r=="LYS"||r=="CYS"||r=="TYR") printf "   %s %3d %s %8.2f       4.00\n", r, substr($0,23,4)+0, substr($0,22,1), pka }' "$1"
echo "--------------------------------------------------------------------------------------------------------"
echo "Free energy of   folding (kcal/mol) as a function of pH (using neutral reference)"
} > "$out"
echo "propka done"
`

// Script writes an executable shell script name with the given body to dir.
func Script(Te testing.TB, dir, name, body string) string {
	Te.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		Te.Fatal(err)
	}
	return p
}

// Tools writes all the fake programs to a new directory and returns a
// configuration that uses them.
func Tools(Te testing.TB) engine.Config {
	Te.Helper()
	bin := Te.TempDir()
	Script(Te, bin, DMD, dmdScript)
	Script(Te, bin, Complex, complexScript)
	Script(Te, bin, Movie, movieScript)
	Script(Te, bin, Babel, babelScript)
	Script(Te, bin, Propka, propkaScript)
	c := engine.DefaultConfig()
	c.Paths.Bin = bin
	c.Paths.Parameters = bin
	c.Programs = engine.Programs{DMD: DMD, Complex: Complex, Movie: Movie, Babel: Babel, Propka: Propka}
	return c
}

// Context returns an engine context working in a new directory, with the fake programs.
func Context(Te testing.TB, env ...string) *engine.Context {
	Te.Helper()
	c := Tools(Te)
	c.Env = env
	return engine.NewContext(Te.TempDir(), c)
}

type pdbAtom struct {
	rec, name, res, chain string
	resid                 int
	x, y                  float64
	el                    string
}

// A histidine and an aspartate around a zinc ion, in chain A, with an
// acetate as substrate. Only the HIS ND1 proton is present. The zinc is
// 1.8 A from the HIS NE2 and more than 3 A from any other N or O.
var structure = []pdbAtom{
	{"ATOM", "N", "HIS", "A", 5, 0, 0, "N"},
	{"ATOM", "CA", "HIS", "A", 5, 1.45, 0, "C"},
	{"ATOM", "C", "HIS", "A", 5, 2.0, 1.4, "C"},
	{"ATOM", "O", "HIS", "A", 5, 1.3, 2.4, "O"},
	{"ATOM", "CB", "HIS", "A", 5, 2.0, -1.4, "C"},
	{"ATOM", "CG", "HIS", "A", 5, 3.4, -1.6, "C"},
	{"ATOM", "ND1", "HIS", "A", 5, 4.0, -2.8, "N"},
	{"ATOM", "CD2", "HIS", "A", 5, 4.3, -0.6, "C"},
	{"ATOM", "CE1", "HIS", "A", 5, 5.3, -2.6, "C"},
	{"ATOM", "NE2", "HIS", "A", 5, 5.5, -1.3, "N"},
	{"ATOM", "HD1", "HIS", "A", 5, 3.5, -3.7, "H"},
	{"ATOM", "N", "GLY", "A", 6, 3.3, 1.5, "N"},
	{"ATOM", "CA", "GLY", "A", 6, 4.0, 2.7, "C"},
	{"ATOM", "C", "GLY", "A", 6, 5.5, 2.6, "C"},
	{"ATOM", "O", "GLY", "A", 6, 6.1, 3.6, "O"},
	{"ATOM", "N", "ASP", "A", 7, 6.2, 1.5, "N"},
	{"ATOM", "CA", "ASP", "A", 7, 7.6, 1.5, "C"},
	{"ATOM", "C", "ASP", "A", 7, 8.3, 2.8, "C"},
	{"ATOM", "O", "ASP", "A", 7, 9.5, 2.8, "O"},
	{"ATOM", "CB", "ASP", "A", 7, 8.3, 0.2, "C"},
	{"ATOM", "CG", "ASP", "A", 7, 9.8, 0.2, "C"},
	{"ATOM", "OD1", "ASP", "A", 7, 10.4, 1.3, "O"},
	{"ATOM", "OD2", "ASP", "A", 7, 10.4, -0.9, "O"},
	{"HETATM", "ZN", "ZN", "A", 8, 7.2, -1.9, "ZN"},
	{"HETATM", "C1", "ACT", "A", 9, 12.0, 8.0, "C"},
	{"HETATM", "O1", "ACT", "A", 9, 13.2, 8.0, "O"},
	{"HETATM", "C2", "ACT", "A", 9, 11.2, 9.1, "C"},
}

// A second chain, GLY 1 and ALA 2, away from the first.
var chainB = []pdbAtom{
	{"ATOM", "N", "GLY", "B", 1, 0, 20, "N"},
	{"ATOM", "CA", "GLY", "B", 1, 1.45, 20, "C"},
	{"ATOM", "C", "GLY", "B", 1, 2.0, 21.4, "C"},
	{"ATOM", "O", "GLY", "B", 1, 1.3, 22.4, "O"},
	{"ATOM", "N", "ALA", "B", 2, 3.3, 21.5, "N"},
	{"ATOM", "CA", "ALA", "B", 2, 4.0, 22.7, "C"},
	{"ATOM", "C", "ALA", "B", 2, 5.5, 22.6, "C"},
	{"ATOM", "O", "ALA", "B", 2, 6.1, 23.6, "O"},
	{"ATOM", "CB", "ALA", "B", 2, 3.5, 24.0, "C"},
}

func pdbText(atoms []pdbAtom) string {
	var b strings.Builder
	for i, a := range atoms {
		fmt.Fprintf(&b, "%-6s%5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f  1.00  0.00          %2s\n",
			a.rec, i+1, " "+a.name, a.res, a.chain, a.resid, a.x, a.y, 0.0, a.el)
	}
	b.WriteString("END\n")
	return b.String()
}

// PDB returns a small structure in PDB format: HIS 5, GLY 6 and ASP 7 in
// chain A, a zinc ion bound to the HIS, and an acetate.
func PDB() string {
	return pdbText(structure)
}

// DimerPDB returns the structure of PDB followed by a second chain, B.
func DimerPDB() string {
	return pdbText(append(append([]pdbAtom{}, structure...), chainB...))
}

func parse(Te testing.TB, text string) *dmd.Protein {
	Te.Helper()
	prot, err := dmd.PDBRead(strings.NewReader(text), "fixture")
	if err != nil {
		Te.Fatal(err)
	}
	return prot
}

// Protein returns the structure of PDB, parsed.
func Protein(Te testing.TB) *dmd.Protein {
	Te.Helper()
	return parse(Te, PDB())
}

// Dimer returns the structure of DimerPDB, parsed.
func Dimer(Te testing.TB) *dmd.Protein {
	Te.Helper()
	return parse(Te, DimerPDB())
}
