// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package component

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

// Writer serializes outbound stanzas onto the connection through a single
// goroutine, so the Stanza Router never blocks holding a presence/
// subscription lock while I/O backpressures (spec.md §5). Send accepts
// either a plain struct (encoded with its xml tags) or an xml.TokenReader
// (copied token-by-token), so the Lookup Engine can hand it an
// xmlstream-composed IQ alongside the router's composite wire structs.
type Writer struct {
	enc  *xml.Encoder
	send chan any
	done chan error
}

// NewWriter starts the writer goroutine for conn. Call Close to stop it.
func NewWriter(conn *Conn) *Writer {
	w := &Writer{
		enc:  conn.Encoder(),
		send: make(chan any, 64),
		done: make(chan error, 1),
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	for v := range w.send {
		var err error
		if tr, ok := v.(xml.TokenReader); ok {
			_, err = xmlstream.Copy(w.enc, tr)
		} else {
			err = w.enc.Encode(v)
		}
		if err != nil {
			w.done <- err
			return
		}
		if err := w.enc.Flush(); err != nil {
			w.done <- err
			return
		}
	}
	w.done <- nil
}

// Send enqueues v for encoding. It never blocks on I/O itself, only on the
// internal channel filling up.
func (w *Writer) Send(v any) {
	w.send <- v
}

// Close stops accepting new sends and waits for the writer goroutine to
// drain, returning the first encode/flush error it hit, if any.
func (w *Writer) Close() error {
	close(w.send)
	return <-w.done
}
