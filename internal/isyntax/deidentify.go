// Package isyntax deidentifies Philips iSyntax whole-slide images by
// rewriting the XML metadata header embedded at the start of the file.
// The slide arrives as a stream of byte chunks and is never fully
// buffered: only the header region is held in memory, everything after
// it is forwarded untouched.
package isyntax

import "context"

// Options controls a Deidentify run.
type Options struct {
	// SingleHeaderChunk emits the rewritten header region as one
	// chunk instead of re-slicing it to the nominal chunk size.
	// In-place rewriters want this; plain file copies do not.
	SingleHeaderChunk bool

	// ReturnOriginalHeader captures a copy of the header bytes
	// before mutation, for verification or audit.
	ReturnOriginalHeader bool
}

// Result of a successful Deidentify call.
type Result struct {
	// Stream yields the deidentified slide. Concatenating its chunks
	// reproduces the input byte-for-byte except for the rewritten
	// header region, which keeps its exact original length.
	Stream *Stream

	// OriginalHeader is the untouched header, only set when
	// Options.ReturnOriginalHeader was requested.
	OriginalHeader []byte

	// HeaderSize is the byte length of the header region.
	HeaderSize int

	// ChunkSize is the nominal chunk size discovered from the source.
	ChunkSize int
}

// Deidentify locates the metadata header in src, validates and rewrites
// it, and returns a lazy stream of the doctored slide. Validation
// completes before the stream is handed out, so on error no output has
// been produced and any destination is still untouched. Scanner and
// transform errors propagate unwrapped.
func Deidentify(ctx context.Context, src ChunkSource, opts Options) (*Result, error) {
	buf := make([]byte, 0, DefaultChunkSize)
	headerLen, chunkSize, buf, err := findHeader(ctx, src, buf)
	if err != nil {
		return nil, err
	}

	var original []byte
	if opts.ReturnOriginalHeader {
		original = append([]byte(nil), buf[:headerLen]...)
	}

	deid, err := DeidentifyHeader(buf[:headerLen])
	if err != nil {
		return nil, err
	}
	copy(buf[:headerLen], deid)

	return &Result{
		Stream:         newStream(buf, chunkSize, !opts.SingleHeaderChunk, src),
		OriginalHeader: original,
		HeaderSize:     headerLen,
		ChunkSize:      chunkSize,
	}, nil
}
