//go:build !facedetect_gocv

package facedetect

// New reports ErrNoBackend; this binary was built without a face engine.
func New(Options) (Backend, error) { return nil, ErrNoBackend }

// Available reports whether a face engine is compiled in.
func Available() bool { return false }
