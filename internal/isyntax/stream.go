package isyntax

import "context"

// Stream is the lazy output of a deidentification run. It first
// replays the doctored buffer (the rewritten header plus any bytes
// already read past it), then forwards the remaining upstream chunks
// verbatim. It is single-pass: once exhausted, Next keeps returning
// io.EOF and never re-emits.
type Stream struct {
	buf      []byte
	pos      int
	step     int
	upstream ChunkSource
}

// newStream splices buf ahead of the remaining upstream chunks. In
// re-chunking mode the buffer is emitted in slices of chunkSize (the
// last slice may be shorter); otherwise it is emitted as one chunk,
// which is what in-place rewriting needs to seek-and-overwrite the
// header region.
func newStream(buf []byte, chunkSize int, rechunk bool, upstream ChunkSource) *Stream {
	step := len(buf)
	if rechunk && chunkSize > 0 {
		step = chunkSize
	}
	return &Stream{buf: buf, step: step, upstream: upstream}
}

// Next implements ChunkSource.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos < len(s.buf) {
		end := s.pos + s.step
		if end > len(s.buf) {
			end = len(s.buf)
		}
		chunk := s.buf[s.pos:end]
		s.pos = end
		return chunk, nil
	}
	return s.upstream.Next(ctx)
}
