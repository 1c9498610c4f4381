/*
 * params.go, part of goDMD.
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

// Package params contains the configuration of a DMD job, as read from
// and written to dmdinput.json, and the queue of stages (commands) to run.
package params

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"strings"

	dmd "github.com/rmera/godmd"
)

// InputFile is the name of the job configuration file.
const InputFile = "dmdinput.json"

// Titration is the configuration of the titration ("titr") feature.
type Titration struct {
	On bool `json:"titr on"`
	// StepTime is the simulation time between protonation state evaluations.
	StepTime        int     `json:"Step Time,omitempty"`
	PH              float64 `json:"pH,omitempty"`
	BuriedCutoff    float64 `json:"Buried Cutoff,omitempty"`
	PartnerDistance float64 `json:"Partner Distance,omitempty"`
}

// Parameters is the configuration of a DMD job. It is also the
// configuration of each stage, once the stage's overrides are applied.
type Parameters struct {
	Thermostat           string         `json:"Thermostat"`
	InitialTemperature   float64        `json:"Initial Temperature"`
	FinalTemperature     float64        `json:"Final Temperature"`
	HeatXC               float64        `json:"HEAT_X_C"`
	RestartFile          string         `json:"Restart File"`
	RestartDt            float64        `json:"Restart dt"`
	EchoFile             string         `json:"Echo File"`
	EchoDt               float64        `json:"Echo dt"`
	MovieFile            string         `json:"Movie File"`
	MovieDt              float64        `json:"Movie dt"`
	StartTime            int            `json:"Start time"`
	MaxTime              int            `json:"Max time"`
	Time                 int            `json:"Time"`
	Commands             Queue          `json:"Commands"`
	RemainingCommands    Queue          `json:"Remaining Commands"`
	Frozen               Frozen         `json:"Frozen atoms"`
	Protonation          []Protonation  `json:"Custom protonation states"`
	Displacement         []Displacement `json:"Restrict Displacement"`
	FreezeNonResidues    bool           `json:"Freeze Non-Residues"`
	RestrictMetalLigands bool           `json:"Restrict Metal Ligands"`
	Titr                 Titration      `json:"titr"`
	Resubmit             bool           `json:"Resubmit"`
}

// keys that must be present in a job configuration file.
var requiredKeys = []string{"Thermostat", "Initial Temperature", "Final Temperature", "HEAT_X_C",
	"Restart File", "Restart dt", "Echo File", "Echo dt", "Movie File", "Movie dt", "Time"}

// Default returns a configuration with reasonable values for a short
// run at constant temperature.
func Default() Parameters {
	return Parameters{
		Thermostat:         "ANDERSON",
		InitialTemperature: 0.1,
		FinalTemperature:   0.1,
		HeatXC:             0.1,
		RestartFile:        "restart",
		RestartDt:          10,
		EchoFile:           "echo",
		EchoDt:             10,
		MovieFile:          "movie",
		MovieDt:            10,
		Time:               1000,
	}
}

// Clone returns a deep copy of P.
func (P Parameters) Clone() Parameters {
	ret := P
	ret.Commands = P.Commands.Clone()
	ret.RemainingCommands = P.RemainingCommands.Clone()
	ret.Frozen = Frozen{
		Chains:   append([]string(nil), P.Frozen.Chains...),
		Residues: append([]ResRef(nil), P.Frozen.Residues...),
		Atoms:    append([]AtomRef(nil), P.Frozen.Atoms...),
	}
	ret.Protonation = append([]Protonation(nil), P.Protonation...)
	ret.Displacement = append([]Displacement(nil), P.Displacement...)
	return ret
}

// Validate checks that P makes sense. All errors wrap dmd.ErrValidation.
func (P Parameters) Validate() error {
	verr := func(format string, args ...interface{}) error {
		return dmd.NewError(dmd.ErrValidation, "Validate", format, args...)
	}
	switch {
	case strings.TrimSpace(P.Thermostat) == "":
		return verr("empty Thermostat")
	case P.InitialTemperature <= 0 || P.FinalTemperature <= 0:
		return verr("temperatures must be positive")
	case P.RestartFile == "" || P.EchoFile == "" || P.MovieFile == "":
		return verr("Restart, Echo and Movie file names can't be empty")
	case P.RestartDt <= 0 || P.EchoDt <= 0 || P.MovieDt <= 0:
		return verr("dt values must be positive")
	case P.Time <= 0:
		return verr("Time must be positive, got %d", P.Time)
	case P.StartTime < 0:
		return verr("negative Start time")
	}
	if P.Titr.On {
		if P.Titr.StepTime <= 0 {
			return verr("titration requires a positive Step Time")
		}
		if P.Titr.PH <= 0 || P.Titr.PH > 14 {
			return verr("titration pH %.2f out of range", P.Titr.PH)
		}
	}
	for _, q := range []Queue{P.Commands, P.RemainingCommands} {
		for _, k := range q.Keys() {
			st, _ := q.Get(k)
			if st.Time != nil && *st.Time < 0 {
				return verr("stage %s has a negative Time", k)
			}
			if st.Titr != nil && st.Titr.On && st.Titr.StepTime <= 0 {
				return verr("stage %s turns titration on without a Step Time", k)
			}
		}
	}
	for _, d := range P.Displacement {
		if d.Tolerance < 0 {
			return verr("negative tolerance for displacement %s-%s", d.A, d.B)
		}
	}
	return nil
}

// Parse decodes and validates a job configuration.
func Parse(data []byte) (Parameters, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return Parameters{}, dmd.NewError(dmd.ErrValidation, "Parse", "malformed configuration: %s", err.Error())
	}
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			return Parameters{}, dmd.NewError(dmd.ErrValidation, "Parse", "missing parameter %q", k)
		}
	}
	var P Parameters
	if err := json.Unmarshal(data, &P); err != nil {
		if _, ok := err.(dmd.Error); ok {
			return Parameters{}, dmd.Decorate(err, "Parse")
		}
		return Parameters{}, dmd.NewError(dmd.ErrValidation, "Parse", "%s", err.Error())
	}
	if err := P.Validate(); err != nil {
		return Parameters{}, dmd.Decorate(err, "Parse")
	}
	return P, nil
}

// Load reads the job configuration from the file name.
func Load(name string) (Parameters, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return Parameters{}, dmd.NewError(dmd.ErrNotFound, "Load", "can't read job configuration: %s", err.Error())
	}
	P, err := Parse(data)
	if err != nil {
		log.Printf("Load: invalid configuration in %s: %s", name, err.Error())
	}
	return P, dmd.Decorate(err, "Load")
}

// Save writes P, indented, to the file name.
func (P Parameters) Save(name string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(P); err != nil {
		return dmd.Decorate(err, "Save")
	}
	return dmd.Decorate(os.WriteFile(name, buf.Bytes(), 0o644), "Save")
}

// Stage holds the parameters a stage (command) can change. Nil fields
// are left as they are in the job configuration.
type Stage struct {
	Thermostat         *string         `json:"Thermostat,omitempty"`
	InitialTemperature *float64        `json:"Initial Temperature,omitempty"`
	FinalTemperature   *float64        `json:"Final Temperature,omitempty"`
	HeatXC             *float64        `json:"HEAT_X_C,omitempty"`
	RestartDt          *float64        `json:"Restart dt,omitempty"`
	EchoDt             *float64        `json:"Echo dt,omitempty"`
	MovieDt            *float64        `json:"Movie dt,omitempty"`
	Time               *int            `json:"Time,omitempty"`
	Frozen             *Frozen         `json:"Frozen atoms,omitempty"`
	Protonation        *[]Protonation  `json:"Custom protonation states,omitempty"`
	Displacement       *[]Displacement `json:"Restrict Displacement,omitempty"`
	Titr               *Titration      `json:"titr,omitempty"`
}

// Duration returns the simulation time of the stage, which is def
// unless the stage sets it.
func (S Stage) Duration(def int) int {
	if S.Time != nil {
		return *S.Time
	}
	return def
}

// WithTime returns a copy of S with its Time set to t.
func (S Stage) WithTime(t int) Stage {
	S.Time = &t
	return S
}

// Structural returns true if the stage tries to change frozen atoms or displacement
// restraints, which can't be done in the middle of a run.
func (S Stage) Structural() bool {
	return S.Frozen != nil || S.Displacement != nil
}

// Apply returns a copy of base with the stage's overrides set.
func (S Stage) Apply(base Parameters) Parameters {
	P := base.Clone()
	if S.Thermostat != nil {
		P.Thermostat = *S.Thermostat
	}
	if S.InitialTemperature != nil {
		P.InitialTemperature = *S.InitialTemperature
	}
	if S.FinalTemperature != nil {
		P.FinalTemperature = *S.FinalTemperature
	}
	if S.HeatXC != nil {
		P.HeatXC = *S.HeatXC
	}
	if S.RestartDt != nil {
		P.RestartDt = *S.RestartDt
	}
	if S.EchoDt != nil {
		P.EchoDt = *S.EchoDt
	}
	if S.MovieDt != nil {
		P.MovieDt = *S.MovieDt
	}
	if S.Time != nil {
		P.Time = *S.Time
	}
	if S.Frozen != nil {
		P.Frozen = *S.Frozen
	}
	if S.Protonation != nil {
		P.Protonation = append([]Protonation(nil), (*S.Protonation)...)
	}
	if S.Displacement != nil {
		P.Displacement = append([]Displacement(nil), (*S.Displacement)...)
	}
	if S.Titr != nil {
		P.Titr = *S.Titr
	}
	return P
}
