// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	piol "github.com/exseisdat/piol"
)

var (
	inPath   string
	outPath  string
	folder   string
	utmZone  int
)

// WGS84 ellipsoid constants for the closed-form UTM inverse (Snyder's
// "Map Projections: A Working Manual", formulas 8-17 through 8-22).
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
)

// utmToLatLon converts a northern-hemisphere UTM (easting, northing) in
// the given zone to (lat, lon) in degrees.
func utmToLatLon(easting, northing float64, zone int) (lat, lon float64) {
	a := wgs84A
	f := wgs84F
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)
	k0 := 0.9996

	x := easting - 500000.0
	y := northing
	m := y / k0
	mu := m / (a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu + (3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu)

	n1 := a / math.Sqrt(1-e2*math.Sin(phi1)*math.Sin(phi1))
	t1 := math.Tan(phi1) * math.Tan(phi1)
	c1 := ep2 * math.Cos(phi1) * math.Cos(phi1)
	r1 := a * (1 - e2) / math.Pow(1-e2*math.Sin(phi1)*math.Sin(phi1), 1.5)
	d := x / (n1 * k0)

	latRad := phi1 - (n1*math.Tan(phi1)/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d*d*d*d/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d*d*d*d*d*d/720)

	lonRad := (d - (1+2*t1+c1)*d*d*d/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d*d*d*d*d/120) / math.Cos(phi1)

	zoneCentralMeridian := float64(zone)*6 - 183
	lon = zoneCentralMeridian + lonRad*180/math.Pi
	lat = latRad * 180 / math.Pi
	return lat, lon
}

func kmlCoord(x, y float64, zone int) string {
	if zone == 0 {
		return fmt.Sprintf("%f,%f,0", x, y)
	}
	lat, lon := utmToLatLon(x, y, zone)
	return fmt.Sprintf("%f,%f,0", lon, lat)
}

func run(cmd *cobra.Command, args []string) {
	comm, errlog := piol.SingleRankContext()

	in, err := piol.OpenInputFile(comm, errlog, inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer in.Close()

	nt := int(in.Reel.NT)
	rules := piol.NewRuleSet(piol.SourceX, piol.SourceY)
	table := piol.NewTraceMetadata(rules, nt)
	in.ReadMetadata(0, nt, table, 0)
	res := piol.GetMinMax(comm, 0, nt,
		func(row int) float64 { return table.GetFloatingPoint(row, piol.SourceX) },
		func(row int) float64 { return table.GetFloatingPoint(row, piol.SourceY) })

	folderName := folder
	if folderName == "" {
		folderName = inPath
	}

	kml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Folder>
      <name>%s</name>
      <Placemark>
        <name>source extent</name>
        <LineString>
          <coordinates>%s %s</coordinates>
        </LineString>
      </Placemark>
    </Folder>
  </Document>
</kml>
`, folderName, kmlCoord(res.MinX.Value, res.MinY.Value, utmZone), kmlCoord(res.MaxX.Value, res.MaxY.Value, utmZone))

	if err := os.WriteFile(outPath, []byte(kml), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	errlog.AssertOk()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "segy2kml",
		Short: "Writes a KML LineString placemark from a SEG-Y file's source-coordinate extremes",
		Run:   run,
	}

	rootCmd.Flags().StringVarP(&inPath, "i", "i", "", "input path (required)")
	rootCmd.Flags().StringVarP(&outPath, "o", "o", "", "output KML path (required)")
	rootCmd.Flags().StringVarP(&folder, "f", "f", "", "KML folder name (defaults to the input path)")
	rootCmd.Flags().IntVarP(&utmZone, "z", "z", 0, "UTM zone to convert from (0 leaves coordinates unconverted)")
	rootCmd.MarkFlagRequired("i")
	rootCmd.MarkFlagRequired("o")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
