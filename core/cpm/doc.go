// Package cpm implements the Critical Path Method over a network of
// activities linked by FS, SS, FF and SF relationships with signed lags.
//
// Early dates are found by repeated forward relaxation from the project
// start and late dates by repeated backward relaxation from the project
// finish. Each pass visits every activity; passes repeat until nothing
// changes or the iteration budget (IterationFactor x activity count) is
// spent. FF and SF links constrain finishes rather than starts, so a single
// sweep in topological order is not enough.
//
// All arithmetic is done on whole hour offsets from the project start inside
// a per-run working set; callers receive plain values in Result and can copy
// them onto their activities with Result.Apply.
package cpm
