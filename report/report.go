/*
 * report.go, part of goDMD.
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

// Package report summarizes the echo file of a DMD run: averages and standard
// deviations of the energies, temperature and pressure, the physical time simulated,
// and plots of the energies and the temperature along the run.
package report

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/rmera/scu"
	"gonum.org/v1/gonum/stat"

	dmd "github.com/rmera/godmd"
)

// TimeUnit is the length, in ns, of one unit of simulation time.
const TimeUnit = 0.0000488882

// Record is one line of the echo file.
type Record struct {
	Time        float64
	Temperature float64
	Pressure    float64
	Potential   float64
	Kinetic     float64
}

// Total returns the total energy of the record.
func (R Record) Total() float64 {
	return R.Potential + R.Kinetic
}

// echo file columns.
const (
	colTime        = 0
	colTemperature = 1
	colPressure    = 2
	colPotential   = 4
	colKinetic     = 5
)

// ReadEcho reads the records in the echo file name. Comments are skipped.
// A record that can't be read is an ErrValue error.
func ReadEcho(name string) ([]Record, error) {
	fin, err := scu.NewMustReadFile(name)
	if err != nil {
		return nil, dmd.Decorate(err, "ReadEcho")
	}
	defer fin.Close()
	var ret []Record
	for i := fin.Next(); i != "EOF"; i = fin.Next() {
		i = strings.TrimSpace(i)
		if i == "" || strings.HasPrefix(i, "#") {
			continue
		}
		f := strings.Fields(i)
		if len(f) <= colKinetic {
			return nil, dmd.NewError(dmd.ErrValue, "ReadEcho", "echo record %q has %d fields", i, len(f))
		}
		var v [colKinetic + 1]float64
		for _, c := range []int{colTime, colTemperature, colPressure, colPotential, colKinetic} {
			if v[c], err = strconv.ParseFloat(f[c], 64); err != nil {
				return nil, dmd.NewError(dmd.ErrValue, "ReadEcho", "echo record %q: %s", i, err.Error())
			}
		}
		ret = append(ret, Record{Time: v[colTime], Temperature: v[colTemperature], Pressure: v[colPressure],
			Potential: v[colPotential], Kinetic: v[colKinetic]})
	}
	return ret, nil
}

// Stat is the average and the (population) standard deviation of a quantity.
type Stat struct {
	Mean, Std float64
}

func (S Stat) String() string {
	return fmt.Sprintf("%.5f (%.5f)", S.Mean, S.Std)
}

// Summary contains the statistics of a set of echo records.
type Summary struct {
	Records     int
	Start, End  float64 // simulation times of the first and last record
	Temperature Stat
	Pressure    Stat
	Potential   Stat
	Kinetic     Stat
	Total       Stat
}

// Nanoseconds returns the estimated physical time of t simulation time units, in ns.
func Nanoseconds(t int) float64 {
	return float64(t) * TimeUnit
}

// PhysicalTime returns the estimated physical time simulated up to the last
// record, in ns.
func (S Summary) PhysicalTime() float64 {
	return S.End * TimeUnit
}

func column(recs []Record, f func(Record) float64) Stat {
	x := make([]float64, len(recs))
	for i, r := range recs {
		x[i] = f(r)
	}
	var s Stat
	s.Mean, s.Std = stat.PopMeanStdDev(x, nil)
	return s
}

// Summarize returns the statistics of recs. It is an ErrValue error if there are no records.
func Summarize(recs []Record) (Summary, error) {
	if len(recs) == 0 {
		return Summary{}, dmd.NewError(dmd.ErrValue, "Summarize", "no echo records")
	}
	return Summary{
		Records:     len(recs),
		Start:       recs[0].Time,
		End:         recs[len(recs)-1].Time,
		Temperature: column(recs, func(r Record) float64 { return r.Temperature }),
		Pressure:    column(recs, func(r Record) float64 { return r.Pressure }),
		Potential:   column(recs, func(r Record) float64 { return r.Potential }),
		Kinetic:     column(recs, func(r Record) float64 { return r.Kinetic }),
		Total:       column(recs, Record.Total),
	}, nil
}

// Log writes the summary to the standard logger, along with the physical time of
// a run of duration time units, and the wall time it took.
func (S Summary) Log(duration int, wall time.Duration) {
	log.Printf("[Ave. Pot. Energy] ==>> %s kcal/mol", S.Potential)
	log.Printf("[Ave. Kin. Energy] ==>> %s kcal/mol", S.Kinetic)
	log.Printf("[Ave. Tot. Energy] ==>> %s kcal/mol", S.Total)
	log.Printf("[Ave. Pressure   ] ==>> %s", S.Pressure)
	log.Printf("[Ave. Temperature] ==>> %s", S.Temperature)
	log.Printf("[Est. Phys. Time ] ==>> %g ns", Nanoseconds(duration))
	log.Printf("[Tot. Phys. Time ] ==>> %g ns", S.PhysicalTime())
	log.Printf("Time elapsed during DMD simulation: %s", wall.Round(time.Second))
}

// Stage reads the echo file after a run of duration time units, logs its summary along
// with the wall time, and, if png is not empty, plots the echo file to png.
func Stage(echo, png string, duration int, wall time.Duration) (Summary, error) {
	recs, err := ReadEcho(echo)
	if err != nil {
		return Summary{}, dmd.Decorate(err, "Stage")
	}
	S, err := Summarize(recs)
	if err != nil {
		return S, dmd.Decorate(err, "Stage")
	}
	S.Log(duration, wall)
	if png != "" {
		if err := Plot(recs, "DMD run", png); err != nil {
			return S, dmd.Decorate(err, "Stage")
		}
	}
	return S, nil
}
