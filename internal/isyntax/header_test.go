package isyntax

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	barcodeAttr = `<Attribute Name="PIM_DP_UFS_BARCODE" Group="0x301D" Element="0x1002" PMSVR="IString">ABC123</Attribute>`
	labelEntry  = `<DataObject ObjectType="DPScannedImage"><Attribute Name="PIM_DP_IMAGE_TYPE" Group="0x301D" Element="0x1004" PMSVR="IString">LABELIMAGE</Attribute></DataObject>`
	wsiEntry    = `<DataObject ObjectType="DPScannedImage"><Attribute Name="PIM_DP_IMAGE_TYPE" Group="0x301D" Element="0x1004" PMSVR="IString">WSI</Attribute></DataObject>`
)

// testHeader assembles a UFS header around the given root children.
func testHeader(children ...string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<DataObject ObjectType="DPUfsImport">` + strings.Join(children, "") + `</DataObject>`)
}

func imagesAttr(entries ...string) string {
	return `<Attribute Name="PIM_DP_SCANNED_IMAGES" Group="0x301D" Element="0x1003" PMSVR="IDataObjectArray"><Array>` +
		strings.Join(entries, "") + `</Array></Attribute>`
}

func TestDeidentifyHeader(t *testing.T) {
	header := testHeader(barcodeAttr, imagesAttr(labelEntry, wsiEntry))

	deid, err := DeidentifyHeader(header)
	require.NoError(t, err)

	// Size invariant: the region keeps its exact byte length, the
	// slack is trailing newlines.
	assert.Len(t, deid, len(header))
	assert.True(t, strings.HasSuffix(string(deid), "\n"))
	assert.True(t, strings.HasPrefix(string(deid), `<?xml version="1.0" encoding="UTF-8"?>`+"\n"))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(deid))
	root := doc.Root()

	// The barcode element survives but its value is gone.
	barcodes := selectAttributes(root, barcodeName, barcodeElement, kindString)
	require.Len(t, barcodes, 1)
	assert.Empty(t, barcodes[0].Text())

	// The label entry is removed, the WSI entry stays.
	array := root.FindElement("./Attribute/Array")
	require.NotNil(t, array)
	entries := array.SelectElements("DataObject")
	require.Len(t, entries, 1)
	assert.Equal(t, "WSI", entries[0].FindElement("./Attribute").Text())
}

func TestDeidentifyHeaderLowercaseGroup(t *testing.T) {
	header := []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<DataObject ObjectType="DPUfsImport">` +
		`<Attribute Name="PIM_DP_UFS_BARCODE" Group="0x301d" Element="0x1002" PMSVR="IString">X</Attribute>` +
		`<Attribute Name="PIM_DP_SCANNED_IMAGES" Group="0x301d" Element="0x1003" PMSVR="IDataObjectArray"><Array>` +
		`<DataObject ObjectType="DPScannedImage"><Attribute Name="PIM_DP_IMAGE_TYPE" Group="0x301d" Element="0x1004" PMSVR="IString">LABELIMAGE</Attribute></DataObject>` +
		`</Array></Attribute></DataObject>`)

	_, err := DeidentifyHeader(header)
	assert.NoError(t, err)
}

func TestDeidentifyHeaderMixedCaseNameDoesNotMatch(t *testing.T) {
	// Only the group hex literal is case-insensitive; a case-mangled
	// attribute name must not be treated as the barcode.
	header := testHeader(
		`<Attribute Name="pim_dp_ufs_barcode" Group="0x301D" Element="0x1002" PMSVR="IString">X</Attribute>`,
		imagesAttr(labelEntry),
	)

	_, err := DeidentifyHeader(header)
	var barcodeErr *BarcodeError
	require.ErrorAs(t, err, &barcodeErr)
	assert.Equal(t, "Barcode not found", barcodeErr.Error())
}

func TestDeidentifyHeaderErrors(t *testing.T) {
	tests := []struct {
		name      string
		header    []byte
		check     func(t *testing.T, err error)
	}{
		{
			name:   "malformed xml",
			header: []byte(`<DataObject ObjectType="DPUfsImport">`),
			check: func(t *testing.T, err error) {
				var formatErr *FormatError
				require.ErrorAs(t, err, &formatErr)
				assert.Equal(t, "Error decoding header", formatErr.Error())
			},
		},
		{
			name:   "wrong root tag",
			header: []byte(`<Document ObjectType="DPUfsImport" />`),
			check: func(t *testing.T, err error) {
				var formatErr *FormatError
				require.ErrorAs(t, err, &formatErr)
				assert.Equal(t, "Invalid header root element", formatErr.Error())
			},
		},
		{
			name:   "wrong root object type",
			header: []byte(`<DataObject ObjectType="DPScannedImage" />`),
			check: func(t *testing.T, err error) {
				var formatErr *FormatError
				require.ErrorAs(t, err, &formatErr)
				assert.Equal(t, "Invalid header root element", formatErr.Error())
			},
		},
		{
			name:   "no barcode",
			header: testHeader(imagesAttr(labelEntry)),
			check: func(t *testing.T, err error) {
				var barcodeErr *BarcodeError
				require.ErrorAs(t, err, &barcodeErr)
				assert.Equal(t, "Barcode not found", barcodeErr.Error())
			},
		},
		{
			name:   "two barcodes",
			header: testHeader(barcodeAttr, barcodeAttr, imagesAttr(labelEntry)),
			check: func(t *testing.T, err error) {
				var barcodeErr *BarcodeError
				require.ErrorAs(t, err, &barcodeErr)
				assert.Equal(t, 2, barcodeErr.Count)
				assert.Equal(t, "Single barcode element expected, 2 found", barcodeErr.Error())
			},
		},
		{
			name:   "no images array",
			header: testHeader(barcodeAttr),
			check: func(t *testing.T, err error) {
				var imagesErr *ImagesError
				require.ErrorAs(t, err, &imagesErr)
				assert.Equal(t, "Images not found", imagesErr.Error())
			},
		},
		{
			name:   "two images attributes",
			header: testHeader(barcodeAttr, imagesAttr(labelEntry), imagesAttr()),
			check: func(t *testing.T, err error) {
				var imagesErr *ImagesError
				require.ErrorAs(t, err, &imagesErr)
				assert.Equal(t, 2, imagesErr.Count)
				assert.Equal(t, "Single images element expected, 2 found", imagesErr.Error())
			},
		},
		{
			name:   "no label entry",
			header: testHeader(barcodeAttr, imagesAttr(wsiEntry)),
			check: func(t *testing.T, err error) {
				var labelErr *LabelError
				require.ErrorAs(t, err, &labelErr)
				assert.Equal(t, "Label not found", labelErr.Error())
			},
		},
		{
			name:   "two label entries",
			header: testHeader(barcodeAttr, imagesAttr(labelEntry, labelEntry)),
			check: func(t *testing.T, err error) {
				var labelErr *LabelError
				require.ErrorAs(t, err, &labelErr)
				assert.Equal(t, 2, labelErr.Count)
				assert.Equal(t, "Single label expected, 2 found", labelErr.Error())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeidentifyHeader(tt.header)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestDeidentifyHeaderIdempotent(t *testing.T) {
	// A header that went through a prior pass has an empty barcode and
	// no label entry; running it again must fail cleanly rather than
	// silently rewrite.
	header := testHeader(barcodeAttr, imagesAttr(labelEntry, wsiEntry))
	deid, err := DeidentifyHeader(header)
	require.NoError(t, err)

	_, err = DeidentifyHeader(deid)
	var labelErr *LabelError
	assert.ErrorAs(t, err, &labelErr)
}
