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

package titrate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmera/godmd/params"
)

// Expand splits each stage of q that does titration into sub-stages "<key>.<i>"
// of the titration step time, the last one taking the remainder. Other stages,
// and titration stages not longer than one step, are left as they are.
func Expand(q params.Queue, base params.Parameters) params.Queue {
	keys := make([]string, 0, q.Len())
	stages := make([]params.Stage, 0, q.Len())
	for _, k := range q.Keys() {
		st, _ := q.Get(k)
		P := st.Apply(base)
		step := P.Titr.StepTime
		if !P.Titr.On || step <= 0 || P.Time <= step {
			keys = append(keys, k)
			stages = append(stages, st)
			continue
		}
		for i, left := 1, P.Time; left > 0; i++ {
			t := step
			if left < step {
				t = left
			}
			keys = append(keys, fmt.Sprintf("%s.%d", k, i))
			stages = append(stages, st.WithTime(t))
			left -= t
		}
	}
	return params.NewQueue(keys, stages)
}

// parentKey returns the key of the stage k was expanded from.
func parentKey(k string) (string, bool) {
	i := strings.LastIndex(k, ".")
	if i <= 0 {
		return "", false
	}
	if _, err := strconv.Atoi(k[i+1:]); err != nil {
		return "", false
	}
	return k[:i], true
}

// Condense folds the pending sub-stages made by Expand back into their stage.
// If the stage is in base.Commands, it gets its configured form, so the time
// already simulated can be subtracted when the job is resumed. Otherwise it
// gets the sum of the times of the pending sub-stages.
func Condense(q params.Queue, base params.Parameters) params.Queue {
	keys := make([]string, 0, q.Len())
	stages := make([]params.Stage, 0, q.Len())
	summed := make(map[string]bool)
	for _, k := range q.Keys() {
		st, _ := q.Get(k)
		parent, ok := parentKey(k)
		if !ok || !st.Apply(base).Titr.On {
			keys = append(keys, k)
			stages = append(stages, st)
			continue
		}
		if n := len(keys); n > 0 && keys[n-1] == parent {
			if summed[parent] {
				stages[n-1] = stages[n-1].WithTime(stages[n-1].Duration(base.Time) + st.Duration(base.Time))
			}
			continue
		}
		keys = append(keys, parent)
		if orig, ok := base.Commands.Get(parent); ok {
			stages = append(stages, orig)
			continue
		}
		summed[parent] = true
		stages = append(stages, st.WithTime(st.Duration(base.Time)))
	}
	return params.NewQueue(keys, stages)
}
