// Package jsonfmt implements the JSON policy format.
//
// A policy document is one JSON object; nested policies are nested
// objects, sequences are arrays, and file references are encoded as
// {"$file": "path"}. A sub-policy whose only entry is a single string
// named "$file" would be indistinguishable from a reference, so the
// writer rejects that shape instead of emitting it. A single-value
// entry is written as a bare scalar, so documents read naturally:
//
//	{
//	  "standalone": true,
//	  "filters": ["g", "r", "i"],
//	  "receiver": {
//	    "host": "lsst.org",
//	    "port": 9001
//	  },
//	  "calibration": {"$file": "defaults/cal.paf"}
//	}
//
// Entry order is preserved on both sides: the encoder is hand-rolled
// and the decoder works at token level, because Go maps would lose it.
// Doubles always carry a decimal point or exponent so their kind
// survives the round trip. JSON cannot carry a content declaration, so
// withDecl is a documented no-op.
package jsonfmt
