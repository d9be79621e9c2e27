package isyntax

import (
	"context"
	"io"
)

// DefaultChunkSize is the read granularity used when streaming a slide
// from a file or object store.
const DefaultChunkSize = 8192

// ChunkSource is a pull iterator over the bytes of a slide. Next
// returns the next chunk, or io.EOF once the source is exhausted.
// Chunks are non-empty, and only the final chunk may be shorter than
// the others; the length of the first chunk defines the nominal chunk
// size used when re-chunking output.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

type readerSource struct {
	r    io.Reader
	size int
}

// NewReaderSource adapts an io.Reader into a ChunkSource producing
// fixed-size chunks. Short reads are coalesced so that every chunk
// except possibly the last has exactly chunkSize bytes.
func NewReaderSource(r io.Reader, chunkSize int) ChunkSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &readerSource{r: r, size: chunkSize}
}

func (s *readerSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunk := make([]byte, s.size)
	n, err := io.ReadFull(s.r, chunk)
	switch {
	case err == io.ErrUnexpectedEOF:
		return chunk[:n], nil
	case err != nil:
		return nil, err // io.EOF included
	}
	return chunk, nil
}

type sliceSource struct {
	chunks [][]byte
}

// NewSliceSource yields the given chunks in order. Empty chunks are
// skipped. Intended for tests and for replaying buffered regions.
func NewSliceSource(chunks ...[]byte) ChunkSource {
	return &sliceSource{chunks: chunks}
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for len(s.chunks) > 0 {
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		if len(chunk) > 0 {
			return chunk, nil
		}
	}
	return nil, io.EOF
}

// Copy drains src into w and reports the number of bytes written.
func Copy(ctx context.Context, w io.Writer, src ChunkSource) (int64, error) {
	var written int64
	for {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}
