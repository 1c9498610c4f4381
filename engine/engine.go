/*
 * engine.go, part of goDMD.
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

// Package engine runs the external programs of a DMD job: the DMD engine itself,
// the complex state file builder, the movie converter and the babel structure
// converter, and reads the files they produce.
package engine

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rmera/scu"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/params"
)

// Names of the files the engine reads and writes in the working directory.
const (
	StartFile     = "dmd_start"
	StateFile     = "state"
	ParamFile     = "param"
	InConstrFile  = "inConstr"
	OutConstrFile = "outConstr"
	TopparamFile  = "topparam"
	OutputFile    = "dmd.out"
	InitialPDB    = "initial.pdb"
)

// Verbose makes the output of the programs other than the engine go to the log.
var Verbose bool

// run executes prog with args in the working directory, and waits for it. The combined
// output of the program is copied, line by line, to out (if not nil) and, in verbose
// mode, to the log. The returned string contains the output. Only failing to start the
// program is an error. An unsuccessful exit is just logged, as the programs are judged
// by the files they produce.
func (C *Context) run(out io.Writer, prog string, args ...string) (string, error) {
	path := C.program(prog)
	command := exec.Command(path, args...)
	command.Dir = C.Dir
	command.Env = C.environ()
	pipe, err := command.StdoutPipe()
	if err != nil {
		return "", dmd.NewError(dmd.ErrExternalTool, "run", "%s: %s", prog, err.Error())
	}
	command.Stderr = command.Stdout
	if Verbose {
		log.Printf("[%s] %s %s", C.RunID, path, strings.Join(args, " "))
	}
	if err := command.Start(); err != nil {
		log.Printf("[%s] could not start %s: %s", C.RunID, path, err.Error())
		return "", dmd.NewError(dmd.ErrExternalTool, "run", "could not start %s: %s", prog, err.Error())
	}
	var all strings.Builder
	s := bufio.NewScanner(pipe)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := s.Text()
		all.WriteString(line)
		all.WriteByte('\n')
		if out != nil {
			fmt.Fprintln(out, line)
		}
		if Verbose {
			log.Printf("[%s] %s: %s", C.RunID, prog, line)
		}
	}
	if err := command.Wait(); err != nil {
		log.Printf("[%s] %s finished with: %s", C.RunID, prog, err.Error())
	}
	return all.String(), nil
}

// WriteStartFile writes the engine's start file for the parameters P, with the
// simulation clock starting at start.
func WriteStartFile(C *Context, P params.Parameters, start int) error {
	f, err := os.Create(C.Path(StartFile))
	if err != nil {
		return dmd.Decorate(err, "WriteStartFile")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "THERMOSTAT     %s\n", P.Thermostat)
	fmt.Fprintf(w, "T_NEW          %v\n", P.InitialTemperature)
	fmt.Fprintf(w, "T_LIMIT        %v\n", P.FinalTemperature)
	fmt.Fprintf(w, "HEAT_X_C       %v\n", P.HeatXC)
	fmt.Fprintf(w, "RESTART_FILE   %s\n", P.RestartFile)
	fmt.Fprintf(w, "RESTART_DT     %v\n", P.RestartDt)
	fmt.Fprintf(w, "ECHO_FILE      %s\n", P.EchoFile)
	fmt.Fprintf(w, "ECHO_DT        %v\n", P.EchoDt)
	fmt.Fprintf(w, "MOVIE_FILE     %s\n", P.MovieFile)
	fmt.Fprintf(w, "START_TIME     %d\n", start)
	fmt.Fprintf(w, "MOVIE_DT       %v\n", P.MovieDt)
	fmt.Fprintf(w, "MAX_TIME       %d\n", start+P.Time)
	return dmd.Decorate(w.Flush(), "WriteStartFile")
}

// RunDMD writes the start file and runs the DMD engine for the parameters P, from the
// time start. With useRestart, the run continues from the restart file, if there is one.
// Otherwise it starts from the state file. The output goes to dmd.out.
func RunDMD(C *Context, P params.Parameters, start int, useRestart bool) error {
	if err := WriteStartFile(C, P, start); err != nil {
		return dmd.Decorate(err, "RunDMD")
	}
	state := StateFile
	if useRestart && C.Exists(P.RestartFile) {
		state = P.RestartFile
	}
	log.Printf("[Restart File]     ==>> %t", state != StateFile)
	out, err := os.OpenFile(C.Path(OutputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return dmd.Decorate(err, "RunDMD")
	}
	defer out.Close()
	args := []string{"-i", StartFile, "-s", state, "-p", ParamFile, "-c", OutConstrFile, "-m", strconv.Itoa(C.Cores), "-fa"}
	log.Printf("[Issuing command]  ==>> %s %s", C.Programs.DMD, strings.Join(args, " "))
	fmt.Fprintf(out, "# run %s, from time %d to %d\n", C.RunID, start, start+P.Time)
	_, err = C.run(out, C.Programs.DMD, args...)
	return dmd.Decorate(err, "RunDMD")
}

// LastTime returns the last simulation time recorded in the echo file: the integer
// part of the first column of its last line that is not a comment. ok is false if
// the file doesn't exist or has no records.
func LastTime(echo string) (t int, ok bool, err error) {
	if _, err := os.Stat(echo); err != nil {
		return 0, false, nil
	}
	fin, err := scu.NewMustReadFile(echo)
	if err != nil {
		return 0, false, dmd.Decorate(err, "LastTime")
	}
	defer fin.Close()
	last := ""
	for i := fin.Next(); i != "EOF"; i = fin.Next() {
		i = strings.TrimSpace(i)
		if i == "" || strings.HasPrefix(i, "#") {
			continue
		}
		last = i
	}
	if last == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.Fields(last)[0], 64)
	if err != nil {
		return 0, false, dmd.NewError(dmd.ErrValue, "LastTime", "bad time in %s: %s", echo, last)
	}
	return int(f), true, nil
}
