// Package paf implements the PAF plain-text policy format.
//
// One entry per line:
//
//	#<?cfg paf policy ?>
//	standalone: true
//	filters: "g" "r" "i"
//	threshold: 4.5
//	calibration: @defaults/cal.paf
//	receiver: {
//	  host: "lsst.org"
//	  port: 9001
//	}
//
// Values after "name:" are space-separated; a sequence is written on
// one line, and repeated entries under the same name append. Strings
// are quoted, file references carry an @ prefix, and nested policies
// open a braced block indented two spaces per level. Lines starting
// with # are comments; the content declaration is itself a comment.
//
// PAF supports every value kind and arbitrary nesting. The one gap is
// empty sequences, which have no spelling and are rejected with
// format.ErrEmptyArray.
package paf
