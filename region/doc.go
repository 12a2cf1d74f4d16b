// Package region obtains raw memory for a gc.Heap to run over:
// a page-aligned anonymous mapping on unix, a plain Go slice elsewhere. The collector core deliberately stays silent on how a host
// obtains [start, end); this package is one concrete, optional answer
// for hosts that want a real OS mapping rather than a plain Go slice.
package region
