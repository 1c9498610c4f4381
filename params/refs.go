/*
 * refs.go, part of goDMD.
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

package params

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	dmd "github.com/rmera/godmd"
)

// AtomRef identifies an atom by chain, residue number and atom name.
// In JSON it is either ["A", 12, "CA"] or "A:12:CA".
type AtomRef struct {
	Chain   string
	Residue int
	Atom    string
}

func (A AtomRef) String() string {
	return fmt.Sprintf("%s:%d:%s", A.Chain, A.Residue, A.Atom)
}

// Resolve returns the atom A refers to in prot.
func (A AtomRef) Resolve(prot *dmd.Protein) (*dmd.Atom, error) {
	return prot.Atom(A.Chain, A.Residue, A.Atom)
}

func (A AtomRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{A.Chain, A.Residue, A.Atom})
}

func (A *AtomRef) UnmarshalJSON(b []byte) error {
	f, err := refFields(b, 3)
	if err != nil {
		return err
	}
	A.Chain, A.Atom = f[0], f[2]
	A.Residue, err = strconv.Atoi(f[1])
	if err != nil {
		return dmd.NewError(dmd.ErrValidation, "AtomRef", "bad residue number in %s", string(b))
	}
	return nil
}

// ResRef identifies a residue. In JSON it is either ["A", 12] or "A:12".
type ResRef struct {
	Chain   string
	Residue int
}

func (R ResRef) String() string {
	return fmt.Sprintf("%s:%d", R.Chain, R.Residue)
}

// Resolve returns the residue R refers to in prot.
func (R ResRef) Resolve(prot *dmd.Protein) (*dmd.Residue, error) {
	return prot.Residue(R.Chain, R.Residue)
}

func (R ResRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{R.Chain, R.Residue})
}

func (R *ResRef) UnmarshalJSON(b []byte) error {
	f, err := refFields(b, 2)
	if err != nil {
		return err
	}
	R.Chain = f[0]
	R.Residue, err = strconv.Atoi(f[1])
	if err != nil {
		return dmd.NewError(dmd.ErrValidation, "ResRef", "bad residue number in %s", string(b))
	}
	return nil
}

// refFields splits a reference given either as a colon-separated string or as
// a JSON array into exactly n fields.
func refFields(b []byte, n int) ([]string, error) {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f := strings.Split(s, ":")
		if len(f) != n {
			return nil, dmd.NewError(dmd.ErrValidation, "refFields", "reference %q should have %d fields", s, n)
		}
		for i := range f {
			f[i] = strings.TrimSpace(f[i])
		}
		return f, nil
	}
	var arr []interface{}
	if err := json.Unmarshal(b, &arr); err != nil || len(arr) != n {
		return nil, dmd.NewError(dmd.ErrValidation, "refFields", "reference %s should be a string or an array of %d elements", string(b), n)
	}
	return stringify(arr), nil
}

func stringify(arr []interface{}) []string {
	ret := make([]string, len(arr))
	for i, v := range arr {
		switch t := v.(type) {
		case string:
			ret[i] = strings.TrimSpace(t)
		case float64:
			ret[i] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			ret[i] = fmt.Sprint(t)
		}
	}
	return ret
}

// Frozen lists the parts of the structure kept static during the simulation.
type Frozen struct {
	Chains   []string  `json:"Chains"`
	Residues []ResRef  `json:"Residues"`
	Atoms    []AtomRef `json:"Atoms"`
}

// Empty returns true if nothing is frozen.
func (F Frozen) Empty() bool {
	return len(F.Chains) == 0 && len(F.Residues) == 0 && len(F.Atoms) == 0
}

// Protonation actions.
const (
	Protonate   = "protonate"
	Deprotonate = "deprotonate"
)

// Protonation is a custom protonation state, [chain, residue, action, variant] in JSON.
// Variant, optional, is the name of the heteroatom that gains or loses the proton.
type Protonation struct {
	Chain   string
	Residue int
	Action  string
	Variant string
}

func (P Protonation) MarshalJSON() ([]byte, error) {
	if P.Variant == "" {
		return json.Marshal([]interface{}{P.Chain, P.Residue, P.Action})
	}
	return json.Marshal([]interface{}{P.Chain, P.Residue, P.Action, P.Variant})
}

func (P *Protonation) UnmarshalJSON(b []byte) error {
	var arr []interface{}
	if err := json.Unmarshal(b, &arr); err != nil || len(arr) < 3 || len(arr) > 4 {
		return dmd.NewError(dmd.ErrValidation, "Protonation", "protonation state %s should be [chain, residue, action, variant]", string(b))
	}
	f := stringify(arr)
	res, err := strconv.Atoi(f[1])
	if err != nil {
		return dmd.NewError(dmd.ErrValidation, "Protonation", "bad residue number in %s", string(b))
	}
	action := strings.ToLower(f[2])
	if action != Protonate && action != Deprotonate {
		return dmd.NewError(dmd.ErrValidation, "Protonation", "unknown action %q", f[2])
	}
	*P = Protonation{Chain: f[0], Residue: res, Action: action}
	if len(f) == 4 {
		P.Variant = f[3]
	}
	return nil
}

// Displacement restrains the distance between two atoms to its initial value
// plus or minus Tolerance. [ref, ref, tolerance] in JSON.
type Displacement struct {
	A, B      AtomRef
	Tolerance float64
}

func (D Displacement) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{D.A, D.B, D.Tolerance})
}

func (D *Displacement) UnmarshalJSON(b []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil || len(arr) != 3 {
		return dmd.NewError(dmd.ErrValidation, "Displacement", "displacement %s should be [atom, atom, tolerance]", string(b))
	}
	if err := json.Unmarshal(arr[0], &D.A); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[1], &D.B); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[2], &D.Tolerance); err != nil {
		return dmd.NewError(dmd.ErrValidation, "Displacement", "bad tolerance in %s", string(b))
	}
	return nil
}
