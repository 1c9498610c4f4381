/*
 * doc.go, part of goDMD.
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

/*Package dmd is the main package of goDMD, a driver for discrete molecular dynamics
(DMD) simulations of proteins. It provides the atom, residue, chain and protein
structures, reading and writing of PDB files, and the normalization that prepares
an arbitrary structure for the DMD tools.

	**goDMD packages**

    dmd: the structural model, PDB files, Reformat and Relabel, bonds.

    params: the job configuration (dmdinput.json) and the command queue.

    engine: runs the external programs (pdmd, complex, complex_M2P, babel).

    setup: produces the input files for a DMD job and checks them with a short run.

    titrate: protonation state sampling with an external pKa predictor.

    simulation: runs the command queue, with interruption and resumption.

    report: statistics and plots from the echo file.

The external programs need to be obtained independently from their distributors.*/
package dmd

// Verbose enables debug logging in the normalization functions.
var Verbose bool
