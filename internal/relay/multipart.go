package relay

import (
	"io"
)

// Boundary is the multipart boundary of every MJPEG stream.
const Boundary = "frame"

// StreamContentType is the Content-Type of the stream response.
const StreamContentType = "multipart/x-mixed-replace; boundary=" + Boundary

var (
	chunkHeader  = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")
	chunkTrailer = []byte("\r\n")
)

// WriteChunk writes one multipart part holding frame:
//
//	--frame\r\nContent-Type: image/jpeg\r\n\r\n<frame>\r\n
//
// The frame bytes are written verbatim.
func WriteChunk(w io.Writer, frame []byte) error {
	if _, err := w.Write(chunkHeader); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write(chunkTrailer)
	return err
}

// BuildChunk returns the bytes WriteChunk would write.
func BuildChunk(frame []byte) []byte {
	b := make([]byte, 0, len(chunkHeader)+len(frame)+len(chunkTrailer))
	b = append(b, chunkHeader...)
	b = append(b, frame...)
	return append(b, chunkTrailer...)
}
