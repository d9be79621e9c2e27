package isyntax

import (
	"bytes"
	"context"
	"io"
)

// The header region ends at the byte immediately after a CR LF EOT
// sequence. The textual header itself ends at the last '>' before the
// CR; the bytes between that '>' and the terminator are left untouched.
const headerTerminator = 0x04

// findHeader pulls chunks from src until the end-of-header terminator
// appears in the accumulated buffer. Only newly appended bytes are
// scanned on each pull, so detection stays linear in the header size.
// It returns the header length in bytes, the nominal chunk size (the
// length of the first chunk pulled) and the buffer, which holds at
// least headerLen bytes and possibly part of the region that follows.
func findHeader(ctx context.Context, src ChunkSource, buf []byte) (headerLen, chunkSize int, _ []byte, err error) {
	terminatorEnd := -1
	for terminatorEnd < 0 {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			return 0, 0, buf, errHeaderNotFound()
		}
		if err != nil {
			return 0, 0, buf, err
		}
		if chunkSize == 0 {
			chunkSize = len(chunk)
		}
		scanFrom := len(buf)
		buf = append(buf, chunk...)
		if i := bytes.IndexByte(buf[scanFrom:], headerTerminator); i >= 0 {
			terminatorEnd = scanFrom + i
		}
	}

	crlfStart := terminatorEnd - 2
	if terminatorEnd < 2 || !bytes.Equal(buf[crlfStart:terminatorEnd], []byte("\r\n")) {
		return 0, 0, buf, errDecodingHeader(nil)
	}

	headerLen = bytes.LastIndexByte(buf[:crlfStart], '>') + 1
	if headerLen <= 0 {
		return 0, 0, buf, errDecodingHeader(nil)
	}
	return headerLen, chunkSize, buf, nil
}
