package isyntax

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource wraps a ChunkSource and counts pulls, so tests can
// verify the pipeline stays lazy.
type countingSource struct {
	src   ChunkSource
	pulls int
}

func (c *countingSource) Next(ctx context.Context) ([]byte, error) {
	c.pulls++
	return c.src.Next(ctx)
}

func testSlide(t *testing.T) (slide, header []byte) {
	t.Helper()
	header = testHeader(barcodeAttr, imagesAttr(labelEntry, wsiEntry))
	slide = append(append([]byte{}, header...), "\r\n\x04"...)
	payload := bytes.Repeat([]byte{0xC5, 0x00, 0x7F}, 4000)
	slide = append(slide, payload...)
	return slide, header
}

func drain(t *testing.T, s *Stream) []byte {
	t.Helper()
	var out bytes.Buffer
	_, err := Copy(context.Background(), &out, s)
	require.NoError(t, err)
	return out.Bytes()
}

func TestDeidentify(t *testing.T) {
	slide, header := testSlide(t)

	res, err := Deidentify(context.Background(), chunkedSource(slide, 512), Options{})
	require.NoError(t, err)
	assert.Equal(t, len(header), res.HeaderSize)
	assert.Equal(t, 512, res.ChunkSize)
	assert.Nil(t, res.OriginalHeader)

	out := drain(t, res.Stream)
	require.Len(t, out, len(slide))

	// Everything outside the header region is untouched, terminator
	// included.
	assert.Equal(t, slide[len(header):], out[len(header):])

	// The header region changed but kept its length.
	assert.NotEqual(t, header, out[:len(header)])
	deid, err := DeidentifyHeader(header)
	require.NoError(t, err)
	assert.Equal(t, deid, out[:len(header)])
	assert.NotContains(t, string(out[:len(header)]), "ABC123")
	assert.NotContains(t, string(out[:len(header)]), "LABELIMAGE")
}

func TestDeidentifyReturnsOriginalHeader(t *testing.T) {
	slide, header := testSlide(t)

	res, err := Deidentify(context.Background(), chunkedSource(slide, 256), Options{ReturnOriginalHeader: true})
	require.NoError(t, err)
	assert.Equal(t, header, res.OriginalHeader)

	// The capture is a copy taken before mutation, not a view of the
	// shared buffer.
	drain(t, res.Stream)
	assert.Equal(t, header, res.OriginalHeader)
}

func TestDeidentifyChunkModesAgree(t *testing.T) {
	slide, _ := testSlide(t)

	chunked, err := Deidentify(context.Background(), chunkedSource(slide, 333), Options{})
	require.NoError(t, err)
	single, err := Deidentify(context.Background(), chunkedSource(slide, 333), Options{SingleHeaderChunk: true})
	require.NoError(t, err)

	assert.Equal(t, drain(t, chunked.Stream), drain(t, single.Stream))
}

func TestDeidentifyOutputCadence(t *testing.T) {
	slide, _ := testSlide(t)
	const chunkSize = 200

	res, err := Deidentify(context.Background(), chunkedSource(slide, chunkSize), Options{})
	require.NoError(t, err)

	var chunks [][]byte
	for {
		chunk, err := res.Stream.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	// Every chunk except the last carries the nominal chunk size.
	for i, chunk := range chunks[:len(chunks)-1] {
		assert.Len(t, chunk, chunkSize, "chunk %d", i)
	}
	assert.LessOrEqual(t, len(chunks[len(chunks)-1]), chunkSize)
}

func TestDeidentifySingleHeaderChunk(t *testing.T) {
	slide, header := testSlide(t)

	res, err := Deidentify(context.Background(), chunkedSource(slide, 128), Options{SingleHeaderChunk: true})
	require.NoError(t, err)

	first, err := res.Stream.Next(context.Background())
	require.NoError(t, err)

	// The first chunk is the whole buffered region: the rewritten
	// header plus whatever was read past it while scanning. Writing it
	// at offset 0 performs the in-place rewrite.
	require.GreaterOrEqual(t, len(first), len(header))
	assert.Equal(t, slide[len(header):len(first)], first[len(header):])
	assert.Zero(t, len(first)%128)
}

func TestDeidentifyIsLazy(t *testing.T) {
	slide, _ := testSlide(t)
	src := &countingSource{src: chunkedSource(slide, 100)}

	res, err := Deidentify(context.Background(), src, Options{})
	require.NoError(t, err)
	pullsAfterScan := src.pulls

	// Replaying the buffered region must not touch the upstream source.
	_, err = res.Stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pullsAfterScan, src.pulls)
}

func TestDeidentifyStreamExhaustion(t *testing.T) {
	slide, _ := testSlide(t)

	res, err := Deidentify(context.Background(), chunkedSource(slide, 1024), Options{})
	require.NoError(t, err)
	drain(t, res.Stream)

	// Single-pass: once exhausted the stream keeps signalling EOF.
	for i := 0; i < 3; i++ {
		_, err := res.Stream.Next(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestDeidentifyPropagatesTransformErrors(t *testing.T) {
	header := testHeader(imagesAttr(labelEntry))
	slide := append(append([]byte{}, header...), "\r\n\x04payload"...)

	res, err := Deidentify(context.Background(), chunkedSource(slide, 64), Options{})
	var barcodeErr *BarcodeError
	require.ErrorAs(t, err, &barcodeErr)
	assert.Nil(t, res)
}

func TestDeidentifyHeaderNotFound(t *testing.T) {
	res, err := Deidentify(context.Background(), chunkedSource(bytes.Repeat([]byte{0xFF}, 4096), 64), Options{})
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "Header not found", formatErr.Error())
	assert.Nil(t, res)
}

func TestReaderSource(t *testing.T) {
	data := bytes.Repeat([]byte{0xA7}, 2500)
	src := NewReaderSource(bytes.NewReader(data), 1000)

	var sizes []int
	var out bytes.Buffer
	for {
		chunk, err := src.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
		out.Write(chunk)
	}
	assert.Equal(t, []int{1000, 1000, 500}, sizes)
	assert.Equal(t, data, out.Bytes())
}
