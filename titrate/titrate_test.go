/*
 * titrate_test.go, part of goDMD.
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
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/internal/fake"
	"github.com/rmera/godmd/params"
)

const propkaOut = `propka3.1                                                                                    2024-01-01

---------  -----   ------   ---------------------    --------------    --------------    --------------
                            DESOLVATION  EFFECTS       SIDECHAIN          BACKBONE        COULOMBIC
 RESIDUE    pKa    BURIED     REGULAR      RE        HYDROGEN BOND     HYDROGEN BOND      INTERACTION
---------  -----   ------   ---------   ---------    --------------    --------------    --------------

ASP  12 A   3.10    45 %    0.80  250   0.12    0   -0.40 SER  14 A   -0.30 N    13 A   -0.10 ARG  40 A
HIS  40 A   6.55    92 %   -1.20  400   0.00    0    0.00 XXX   0 X    0.00 XXX   0 X    0.00 XXX   0 X
N+    1 A   7.90     0 %   -0.10   20   0.00    0    0.00 XXX   0 X    0.00 XXX   0 X    0.00 XXX   0 X

Coupled residues (marked *) were detected.Please rerun PropKa with the --display-coupled-residues
or -d option for detailed information.
--------------------------------------------------------------------------------------------------------
SUMMARY OF THIS PREDICTION
       Group      pKa  model-pKa   ligand atom-type
   ASP  12 A     3.10       3.80
   HIS  40 A     6.55       6.50
   N+    1 A     7.90       8.00
--------------------------------------------------------------------------------------------------------
Free energy of   folding (kcal/mol) as a function of pH (using neutral reference)
  0.00     15.31
`

func TestParsePropka(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "x.pka")
	require.NoError(Te, os.WriteFile(name, []byte(propkaOut), 0o644))
	est, err := ParsePropka(name)
	require.NoError(Te, err)
	require.Equal(Te, map[Key]float64{{"ASP", 12, "A"}: 3.10, {"HIS", 40, "A"}: 6.55, {dmd.NTerminus, 1, "A"}: 7.90}, est.PKa)
	require.InDelta(Te, 0.92, est.Buried[Key{"HIS", 40, "A"}], 1e-9)
	require.InDelta(Te, 0.45, est.Buried[Key{"ASP", 12, "A"}], 1e-9)

	require.NoError(Te, os.WriteFile(name, []byte("nothing here\n"), 0o644))
	_, err = ParsePropka(name)
	require.True(Te, errors.Is(err, dmd.ErrValue))
}

func TestPropka(Te *testing.T) {
	C := fake.Context(Te)
	frame := fake.Protein(Te)
	res := (&Propka{C: C}).Estimate(frame)
	require.Equal(Te, Success, res.Status, "%v", res.Err)
	require.Equal(Te, map[Key]float64{{"HIS", 5, "A"}: 4.0, {"ASP", 7, "A"}: 4.0}, res.Estimate.PKa)
	require.InDelta(Te, 0.1, res.Estimate.Buried[Key{"HIS", 5, "A"}], 1e-9)

	marker := C.Path("fail_once")
	require.NoError(Te, os.WriteFile(marker, nil, 0o644))
	C.Env = append(C.Env, "FAKE_PROPKA_FAIL="+marker)
	res = (&Propka{C: C}).Estimate(frame)
	require.Equal(Te, RollbackRequested, res.Status)

	C.Programs.Propka = "surely_not_a_program_here"
	res = (&Propka{C: C}).Estimate(frame)
	require.Equal(Te, Fatal, res.Status)
}

func sampler(ph float64) *Sampler {
	S := NewSampler(params.Titration{On: true, StepTime: 10, PH: ph})
	S.Rand = rand.New(rand.NewSource(1))
	return S
}

func TestDecideSolvated(Te *testing.T) {
	frame := fake.Protein(Te)
	his := Key{"HIS", 5, "A"}
	est := Estimate{PKa: map[Key]float64{his: 14}, Buried: map[Key]float64{his: 0.1}}
	changes := sampler(7).Decide(frame, est)
	require.Equal(Te, []params.Protonation{{Chain: "A", Residue: 5, Action: params.Protonate, Variant: "NE2"}}, changes)

	est.PKa[his] = -5
	require.Empty(Te, sampler(7).Decide(frame, est))
}

// two aspartates sharing one proton, with their carboxylates 2.6 A apart.
func aspPair() *dmd.Protein {
	c := dmd.NewChain("A")
	add := func(num int, x float64, proton bool) {
		r := dmd.NewResidue("ASP", num)
		r.AddAtom(dmd.NewAtom("CG", "c", r3.Vec{X: x}))
		r.AddAtom(dmd.NewAtom("OD1", "o", r3.Vec{X: x, Y: 1.2}))
		r.AddAtom(dmd.NewAtom("OD2", "o", r3.Vec{X: x + 1.1, Y: -0.6}))
		if proton {
			r.AddAtom(dmd.NewAtom("HD2", "h", r3.Vec{X: x + 2.0, Y: -0.3}))
		}
		c.AddResidue(r)
	}
	add(1, 0, true)
	add(2, 3.7, false)
	return dmd.NewProtein("pair", []*dmd.Chain{c})
}

func TestDecideClosedNetwork(Te *testing.T) {
	a, b := Key{"ASP", 1, "A"}, Key{"ASP", 2, "A"}
	est := Estimate{PKa: map[Key]float64{a: 0, b: 10}, Buried: map[Key]float64{a: 0.95, b: 0.99}}
	changes := sampler(7).Decide(aspPair(), est)
	require.Len(Te, changes, 2)
	require.Equal(Te, params.Protonation{Chain: "A", Residue: 1, Action: params.Deprotonate, Variant: "OD2"}, changes[0])
	require.Equal(Te, 2, changes[1].Residue)
	require.Equal(Te, params.Protonate, changes[1].Action)
	require.Contains(Te, []string{"OD1", "OD2"}, changes[1].Variant)

	//the proton stays where it is when that is the best place.
	est.PKa[a], est.PKa[b] = 10, 0
	require.Empty(Te, sampler(7).Decide(aspPair(), est))
}

func titrStage(t int) params.Stage {
	return params.Stage{Time: &t, Titr: &params.Titration{On: true, StepTime: 30, PH: 7}}
}

func TestExpandCondense(Te *testing.T) {
	base := params.Default()
	plain := 20
	q := params.NewQueue([]string{"1", "2"}, []params.Stage{titrStage(100), {Time: &plain}})
	ex := Expand(q, base)
	require.Equal(Te, []string{"1.1", "1.2", "1.3", "1.4", "2"}, ex.Keys())
	require.Equal(Te, 100+20, ex.Duration(base.Time))
	st, _ := ex.Get("1.4")
	require.Equal(Te, 10, st.Duration(0))

	ex.Pop()
	ex.Pop()
	c := Condense(ex, base)
	require.Equal(Te, []string{"1", "2"}, c.Keys())
	st, _ = c.Get("1")
	require.Equal(Te, 40, st.Duration(base.Time))
	require.True(Te, st.Titr.On)

	//with the stage configured, it gets back its full time.
	base.Commands = q.Clone()
	c = Condense(ex, base)
	st, _ = c.Get("1")
	require.Equal(Te, 100, st.Duration(base.Time))

	//short titration stages are not split.
	require.Equal(Te, []string{"1"}, Expand(params.NewQueue([]string{"1"}, []params.Stage{titrStage(30)}), base).Keys())
}

// scripted is an Estimator that returns the given statuses in order, then Success,
// recording the titration step and the structure of each call.
type scripted struct {
	T        *Titrator
	statuses []Status
	steps    []int
	frames   []*dmd.Protein
}

func (s *scripted) Estimate(frame *dmd.Protein) Result {
	s.steps = append(s.steps, s.T.Step)
	s.frames = append(s.frames, frame)
	if len(s.statuses) > 0 {
		st := s.statuses[0]
		s.statuses = s.statuses[1:]
		if st != Success {
			return Result{Status: st, Err: errors.New("scripted failure")}
		}
	}
	return Result{Status: Success, Estimate: Estimate{PKa: map[Key]float64{}, Buried: map[Key]float64{}}}
}

// relaxer stands for the titration setup: it writes the frame, moved 1 A, as the
// initial structure, so every step starts from a different structure.
func relaxer(C *engine.Context, P params.Parameters, frame *dmd.Protein) error {
	shift := func(d float64) {
		for _, at := range frame.Atoms() {
			at.Coords.X += d
		}
	}
	shift(1)
	defer shift(-1)
	return dmd.PDBFileWrite(C.Path(engine.InitialPDB), frame)
}

func titrator(Te *testing.T) (*Titrator, *scripted, params.Parameters) {
	C := fake.Context(Te)
	prot := fake.Protein(Te)
	require.NoError(Te, prot.Reformat("zn"))
	require.NoError(Te, dmd.PDBFileWrite(C.Path(engine.InitialPDB), prot))
	T := &Titrator{C: C, Sampler: sampler(7), Prepare: relaxer}
	est := &scripted{T: T}
	T.Estimator = est
	P := params.Default()
	P.Time = 10
	P.Titr = params.Titration{On: true, StepTime: 10, PH: 7}
	return T, est, P
}

func read(Te *testing.T, name string) string {
	b, err := os.ReadFile(name)
	require.NoError(Te, err)
	return string(b)
}

func TestRollback(Te *testing.T) {
	T, est, P := titrator(Te)
	C := T.C
	repeat, err := T.PrepareStage(&P)
	require.NoError(Te, err)
	require.False(Te, repeat)
	require.Equal(Te, 1, T.Step)
	require.Empty(Te, est.steps)

	require.NoError(Te, engine.RunDMD(C, P, 0, false))
	repeat, err = T.PrepareStage(&P)
	require.NoError(Te, err)
	require.False(Te, repeat)
	require.Equal(Te, 2, T.Step)
	require.True(Te, HasSnapshot(C))
	require.False(Te, C.Exists(P.RestartFile))
	require.False(Te, C.Exists(P.MovieFile))
	goodEcho := read(Te, C.Path(P.EchoFile))
	goodX := est.frames[0].Atoms()[0].Coords.X

	require.NoError(Te, engine.RunDMD(C, P, 10, false))
	est.statuses = []Status{RollbackRequested}
	repeat, err = T.PrepareStage(&P)
	require.NoError(Te, err)
	require.True(Te, repeat)
	require.Equal(Te, []int{2, 3, 3}, est.steps)
	require.Equal(Te, 3, T.Step)
	require.Equal(Te, goodEcho, read(Te, C.Path(P.EchoFile)))
	//the failed frame came from the moved structure, the retried one is the good one.
	require.InDelta(Te, goodX+1, est.frames[1].Atoms()[0].Coords.X, 1e-3)
	require.InDelta(Te, goodX, est.frames[2].Atoms()[0].Coords.X, 1e-3)

	frame, err := T.Rollback(P)
	require.NoError(Te, err)
	require.Equal(Te, 2, T.Step)
	require.InDelta(Te, goodX, frame.Atoms()[0].Coords.X, 1e-3)
}

func TestStepWithoutTrajectory(Te *testing.T) {
	T, est, P := titrator(Te)
	C := T.C
	_, err := T.PrepareStage(&P)
	require.NoError(Te, err)
	require.NoError(Te, engine.RunDMD(C, P, 0, false))
	//echo and restart, but no movie.
	require.NoError(Te, os.Remove(C.Path(P.MovieFile)))
	initial, err := dmd.PDBFileRead(C.Path(engine.InitialPDB))
	require.NoError(Te, err)

	repeat, err := T.PrepareStage(&P)
	require.NoError(Te, err)
	require.False(Te, repeat)
	require.Equal(Te, []int{2}, est.steps)
	require.True(Te, HasSnapshot(C))
	require.InDelta(Te, initial.Atoms()[0].Coords.X, est.frames[0].Atoms()[0].Coords.X, 1e-3)

	//the structure evaluated is the one to go back to.
	frame, err := Restore(C, P.EchoFile, MoviePDB)
	require.NoError(Te, err)
	require.Equal(Te, initial.Len(), frame.Len())
	require.InDelta(Te, initial.Atoms()[0].Coords.X, frame.Atoms()[0].Coords.X, 1e-3)
}

func TestRollbackWithoutSnapshot(Te *testing.T) {
	T, est, P := titrator(Te)
	_, err := T.PrepareStage(&P)
	require.NoError(Te, err)
	require.NoError(Te, engine.RunDMD(T.C, P, 0, false))
	est.statuses = []Status{RollbackRequested}
	_, err = T.PrepareStage(&P)
	require.True(Te, errors.Is(err, dmd.ErrNotFound))
}

func TestFailsTwice(Te *testing.T) {
	T, est, P := titrator(Te)
	_, err := T.PrepareStage(&P)
	require.NoError(Te, err)
	require.NoError(Te, engine.RunDMD(T.C, P, 0, false))
	_, err = T.PrepareStage(&P)
	require.NoError(Te, err)
	require.NoError(Te, engine.RunDMD(T.C, P, 10, false))
	est.statuses = []Status{RollbackRequested, RollbackRequested}
	_, err = T.PrepareStage(&P)
	require.True(Te, errors.Is(err, dmd.ErrExternalTool))

	est.statuses = []Status{Fatal}
	require.NoError(Te, engine.RunDMD(T.C, P, 10, false))
	_, err = T.PrepareStage(&P)
	require.Error(Te, err)
}

func TestSnapshotRoundTrip(Te *testing.T) {
	C := fake.Context(Te)
	require.NoError(Te, os.WriteFile(C.Path("echo"), []byte("# t\n10.0 1.0\n"), 0o644))
	require.NoError(Te, os.WriteFile(C.Path(MoviePDB), []byte(fake.PDB()), 0o644))
	require.NoError(Te, Snapshot(C, "echo", MoviePDB))
	require.NoError(Te, os.WriteFile(C.Path("echo"), []byte("changed\n"), 0o644))
	require.NoError(Te, os.Remove(C.Path(MoviePDB)))
	frame, err := Restore(C, "echo", MoviePDB)
	require.NoError(Te, err)
	require.Equal(Te, fake.Protein(Te).Len(), frame.Len())
	require.Equal(Te, "# t\n10.0 1.0\n", read(Te, C.Path("echo")))
}
