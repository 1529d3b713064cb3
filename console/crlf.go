package console

import (
	"bytes"
	"io"
)

// CRLFWriter translates line feeds to carriage return followed by line feed, as required by terminals
// in raw mode.
type CRLFWriter struct {
	w io.Writer
}

// NewCRLFWriter returns new CRLF writer.
func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

// Write writes p translating line feeds.
func (cw *CRLFWriter) Write(p []byte) (int, error) {
	if _, err := cw.w.Write(bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'})); err != nil {
		return 0, err
	}
	return len(p), nil
}
