package utils

import "io"

// SequentialWriterAt is a wrapper of io.Writer in order to mock the WriterAt type, which is used by the S3 download manager
type SequentialWriterAt struct {
	w io.Writer
}

// NewSequentialWriterAt returns a new SequentialWriterAt
func NewSequentialWriterAt(w io.Writer) *SequentialWriterAt {
	return &SequentialWriterAt{w: w}
}

// WriteAt writes through to the underlying io.Writer, the offset is ignored
func (s *SequentialWriterAt) WriteAt(p []byte, off int64) (n int, err error) {
	return s.w.Write(p)
}
