// Package yamlfmt implements the YAML policy format on yaml.v3 node
// trees.
//
// A policy document is one YAML mapping; nested policies are nested
// mappings, sequences hold multi-valued entries, and file references
// carry the local !file tag:
//
//	#<?cfg yaml policy ?>
//	standalone: true
//	filters: ["g", "r", "i"]
//	receiver:
//	  host: "lsst.org"
//	  port: 9001
//	calibration: !file defaults/cal.paf
//
// Working at node level rather than through map[string]any keeps entry
// order intact in both directions and gives parse errors real line and
// column numbers. String scalars are double-quoted and doubles always
// carry a decimal point or exponent, so kinds survive the round trip
// without coercion.
package yamlfmt
