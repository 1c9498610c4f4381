/*
 * queue.go, part of goDMD.
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
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"

	dmd "github.com/rmera/godmd"
)

// RecoveryFile is where the remaining stages are written when a job is interrupted.
const RecoveryFile = "remaining_commands.json"

// Queue is an ordered set of stages, identified by their keys. In JSON it is an
// object whose members keep the order in which they appear in the file.
// The zero value is an empty queue.
type Queue struct {
	keys   []string
	stages map[string]Stage
}

// NewQueue returns a queue with the given keys and stages, which must have
// the same length.
func NewQueue(keys []string, stages []Stage) Queue {
	var q Queue
	for i, k := range keys {
		q.Set(k, stages[i])
	}
	return q
}

// Len returns the number of stages in the queue.
func (Q Queue) Len() int {
	return len(Q.keys)
}

// Keys returns the keys in order. The slice must not be modified.
func (Q Queue) Keys() []string {
	return Q.keys
}

// Get returns the stage with the given key.
func (Q Queue) Get(key string) (Stage, bool) {
	s, ok := Q.stages[key]
	return s, ok
}

// Front returns the first stage and its key. ok is false if the queue is empty.
func (Q Queue) Front() (key string, st Stage, ok bool) {
	if len(Q.keys) == 0 {
		return "", Stage{}, false
	}
	return Q.keys[0], Q.stages[Q.keys[0]], true
}

// Set replaces the stage key, or appends it to the queue if it is not there.
func (Q *Queue) Set(key string, st Stage) {
	if Q.stages == nil {
		Q.stages = make(map[string]Stage)
	}
	if _, ok := Q.stages[key]; !ok {
		Q.keys = append(Q.keys, key)
	}
	Q.stages[key] = st
}

// Pop removes the first stage and returns it.
func (Q *Queue) Pop() (string, Stage, bool) {
	k, st, ok := Q.Front()
	if !ok {
		return k, st, ok
	}
	Q.keys = append([]string(nil), Q.keys[1:]...)
	delete(Q.stages, k)
	return k, st, ok
}

// Clone returns a copy of Q that shares nothing with it.
func (Q Queue) Clone() Queue {
	var ret Queue
	for _, k := range Q.keys {
		ret.Set(k, Q.stages[k])
	}
	return ret
}

// Clear empties the queue.
func (Q *Queue) Clear() {
	Q.keys = nil
	Q.stages = nil
}

// Duration returns the total simulation time in the queue. Stages that don't
// set their time last def.
func (Q Queue) Duration(def int) int {
	t := 0
	for _, k := range Q.keys {
		t += Q.stages[k].Duration(def)
	}
	return t
}

func (Q Queue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range Q.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		sb, err := json.Marshal(Q.stages[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(sb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the order of its members. Stages with
// keys other than those of Stage are rejected. null is an empty queue.
func (Q *Queue) UnmarshalJSON(b []byte) error {
	Q.Clear()
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return dmd.NewError(dmd.ErrValidation, "Queue", "commands must be a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return dmd.NewError(dmd.ErrValidation, "Queue", "bad command key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		sdec := json.NewDecoder(bytes.NewReader(raw))
		sdec.DisallowUnknownFields()
		var st Stage
		if err := sdec.Decode(&st); err != nil {
			return dmd.NewError(dmd.ErrValidation, "Queue", "command %s: %s", key, err.Error())
		}
		if _, dup := Q.stages[key]; dup {
			return dmd.NewError(dmd.ErrValidation, "Queue", "command %s appears twice", key)
		}
		Q.Set(key, st)
	}
	_, err = dec.Token()
	return err
}

// Resume returns the queue to run for P. If P has remaining commands, from an
// interrupted run, those are used, with the duration of the first one shortened
// by the time that was already simulated: the recorded elapsed time minus the
// time of the commands that were completed. The completed commands are the ones
// that precede the remaining ones in P.Commands. It is a validation error if
// that leaves the first command with a negative duration.
// Without remaining commands, P.Commands is used or, if empty, a single stage
// "1" with no overrides.
func Resume(P Parameters, elapsed int) (Queue, error) {
	if P.RemainingCommands.Len() > 0 {
		q := P.RemainingCommands.Clone()
		done := P.Commands.Len() - q.Len()
		if P.Commands.Len() == 0 || done < 0 {
			log.Printf("Resume: can't tell how many commands were completed before, continuing from where the job was left")
			return q, nil
		}
		completed := 0
		for _, k := range P.Commands.Keys()[:done] {
			st, _ := P.Commands.Get(k)
			completed += st.Duration(P.Time)
		}
		key, first, _ := q.Front()
		offset, err := ResumeOffset(first.Duration(P.Time), elapsed, completed)
		if err != nil {
			return Queue{}, dmd.Decorate(err, "Resume")
		}
		log.Printf("Resume: %d time units already simulated of command %s, %d left", elapsed-completed, key, offset)
		q.Set(key, first.WithTime(offset))
		return q, nil
	}
	if P.Commands.Len() > 0 {
		return P.Commands.Clone(), nil
	}
	return NewQueue([]string{"1"}, []Stage{{}}), nil
}

// ResumeOffset returns the duration left for a command of the given nominal duration,
// when elapsed time units have been simulated and the completed commands account
// for completed of them.
func ResumeOffset(nominal, elapsed, completed int) (int, error) {
	offset := nominal - (elapsed - completed)
	if offset < 0 {
		return 0, dmd.NewError(dmd.ErrValidation, "ResumeOffset", "elapsed time %d goes past the command being resumed (completed %d, duration %d)", elapsed, completed, nominal)
	}
	return offset, nil
}

// WriteRecovery writes the queue to the file name, usually RecoveryFile.
func WriteRecovery(name string, q Queue) error {
	b, err := json.Marshal(q)
	if err != nil {
		return dmd.Decorate(err, "WriteRecovery")
	}
	return dmd.Decorate(os.WriteFile(name, b, 0o644), "WriteRecovery")
}

// ReadRecovery reads a queue written by WriteRecovery.
func ReadRecovery(name string) (Queue, error) {
	var q Queue
	b, err := os.ReadFile(name)
	if err != nil {
		return q, dmd.Decorate(err, "ReadRecovery")
	}
	if err := json.Unmarshal(b, &q); err != nil {
		return q, dmd.NewError(dmd.ErrValidation, "ReadRecovery", "%s: %s", name, err.Error())
	}
	return q, nil
}

func (Q Queue) String() string {
	return fmt.Sprintf("%v", Q.keys)
}
