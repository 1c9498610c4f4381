/*
 * plot.go, part of goDMD.
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

package report

import (
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	dmd "github.com/rmera/godmd"
)

// series is one line of a plot.
type series struct {
	name  string
	color color.RGBA
	value func(Record) float64
}

var energies = []series{
	{"Potential", color.RGBA{R: 200, A: 255}, func(r Record) float64 { return r.Potential }},
	{"Kinetic", color.RGBA{B: 200, A: 255}, func(r Record) float64 { return r.Kinetic }},
	{"Total", color.RGBA{G: 150, A: 255}, Record.Total},
}

var temperature = []series{
	{"Temperature", color.RGBA{R: 230, G: 120, A: 255}, func(r Record) float64 { return r.Temperature }},
}

func basicPlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

func addSeries(p *plot.Plot, recs []Record, lines []series) error {
	for _, s := range lines {
		pts := make(plotter.XYs, len(recs))
		for i, r := range recs {
			pts[i].X = r.Time
			pts[i].Y = s.value(r)
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		l.LineStyle.Color = s.color
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(s.name, l)
	}
	return nil
}

// Plot draws the energies and the temperature of recs against the simulation time,
// in two panels, and saves the figure in PNG format to name.
func Plot(recs []Record, title, name string) error {
	if len(recs) == 0 {
		return dmd.NewError(dmd.ErrValue, "Plot", "no echo records to plot")
	}
	top := basicPlot(title, "Energy (kcal/mol)")
	bottom := basicPlot("", "Temperature")
	if err := addSeries(top, recs, energies); err != nil {
		return dmd.Decorate(err, "Plot")
	}
	if err := addSeries(bottom, recs, temperature); err != nil {
		return dmd.Decorate(err, "Plot")
	}
	const w, h = 6 * vg.Inch, 3 * vg.Inch
	img := vgimg.New(w, 2*h)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter}
	panels := [][]*plot.Plot{{top}, {bottom}}
	canvases := plot.Align(panels, tiles, dc)
	for i := range panels {
		panels[i][0].Draw(canvases[i][0])
	}
	f, err := os.Create(name)
	if err != nil {
		return dmd.Decorate(err, "Plot")
	}
	if _, err = (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return dmd.Decorate(err, "Plot")
	}
	return dmd.Decorate(f.Close(), "Plot")
}
