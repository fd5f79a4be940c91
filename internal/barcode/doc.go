// Package barcode adapts an external barcode engine into machine-readable
// code descriptors.
//
// The engine (gozxing) does the locating and decoding; this package selects
// readers for the requested symbologies, retries on a mirrored image when
// asked, and turns the engine's result points into the canonical corner
// order expected by metadata.Code.
//
// Example:
//
//	be := barcode.NewBackend()
//	results, err := be.Decode(ctx, img, barcode.DefaultOptions())
//	codes, err := barcode.ToDescriptors(results, frame, opts)
package barcode
