// Package boundarytest provides a small county fixture for tests.
package boundarytest

import (
	"testing"

	"github.com/mohammed-shakir/county-overlay/internal/boundary"
)

// GeoJSON holds six usable counties in Alabama-like positions plus two features
// the parser must skip:
//
//	01001 Autauga  square  [-87,-86]x[32,33]
//	01003 Baldwin  square  [-86,-85]x[32,33]   (raw GEOID "1003")
//	01005 Barbour  multi   [-85,-84]x[32,33] + [-83,-82]x[32,33]
//	01007 Bibb     square  [-87,-84]x[34,35] with hole [-86.5,-85.5]x[34.25,34.75]
//	01009 Blount   square  [-86.4,-85.6]x[34.3,34.7] inside Bibb's hole
//	01011 Bullock  square  [-86.5,-86.1]x[32.2,32.8] drawn on top of Autauga
const GeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type":"Feature","properties":{"GEO_ID":"0500000US01001","NAME":"Autauga"},
     "geometry":{"type":"Polygon","coordinates":[[[-87,32],[-86,32],[-86,33],[-87,33],[-87,32]]]}},
    {"type":"Feature","properties":{"GEOID":"1003","NAME":"Baldwin"},
     "geometry":{"type":"Polygon","coordinates":[[[-86,32],[-85,32],[-85,33],[-86,33],[-86,32]]]}},
    {"type":"Feature","properties":{"GEO_ID":"0500000US01005","NAME":"Barbour"},
     "geometry":{"type":"MultiPolygon","coordinates":[
        [[[-85,32],[-84,32],[-84,33],[-85,33],[-85,32]]],
        [[[-83,32],[-82,32],[-82,33],[-83,33],[-83,32]]]]}},
    {"type":"Feature","properties":{"GEO_ID":"0500000US01007","NAME":"Bibb"},
     "geometry":{"type":"Polygon","coordinates":[
        [[-87,34],[-84,34],[-84,35],[-87,35],[-87,34]],
        [[-86.5,34.25],[-85.5,34.25],[-85.5,34.75],[-86.5,34.75],[-86.5,34.25]]]}},
    {"type":"Feature","properties":{"GEO_ID":"0500000US01009","NAME":"Blount"},
     "geometry":{"type":"Polygon","coordinates":[[[-86.4,34.3],[-85.6,34.3],[-85.6,34.7],[-86.4,34.7],[-86.4,34.3]]]}},
    {"type":"Feature","properties":{"GEO_ID":"0500000US01011","NAME":"Bullock"},
     "geometry":{"type":"Polygon","coordinates":[[[-86.5,32.2],[-86.1,32.2],[-86.1,32.8],[-86.5,32.8],[-86.5,32.2]]]}},
    {"type":"Feature","properties":{"GEO_ID":"0500000US01013","NAME":"Road"},
     "geometry":{"type":"LineString","coordinates":[[-87,32],[-86,33]]}},
    {"type":"Feature","properties":{"NAME":"Nameless"},
     "geometry":{"type":"Polygon","coordinates":[[[-80,30],[-79,30],[-79,31],[-80,31],[-80,30]]]}}
  ]
}`

// Dataset parses GeoJSON with the H3 index enabled.
func Dataset(t testing.TB) *boundary.Dataset {
	t.Helper()
	ds, err := boundary.Parse([]byte(GeoJSON), boundary.Options{H3Res: 5})
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return ds
}
