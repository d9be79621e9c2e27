package isyntax

import (
	"strings"

	"github.com/beevik/etree"
)

// Metadata literals used by the Philips UFS header. Group identifiers
// are matched case-insensitively because producers emit both 0x301D
// and 0x301d; everything else is matched exactly.
const (
	rootTag        = "DataObject"
	rootObjectType = "DPUfsImport"

	attrGroup = "0x301D"

	barcodeName    = "PIM_DP_UFS_BARCODE"
	barcodeElement = "0x1002"

	imagesName    = "PIM_DP_SCANNED_IMAGES"
	imagesElement = "0x1003"

	imageTypeName    = "PIM_DP_IMAGE_TYPE"
	imageTypeElement = "0x1004"

	labelImageType = "LABELIMAGE"

	kindString      = "IString"
	kindObjectArray = "IDataObjectArray"
)

const xmlDeclaration = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"

// DeidentifyHeader rewrites a UFS metadata header so that it no longer
// identifies the patient: the specimen barcode text is cleared (the
// element is kept) and the label image entry is removed from the
// scanned-images array. The result has exactly the same byte length as
// the input; the slack left by the removed entry is filled with
// trailing newlines so downstream binary offsets remain valid.
func DeidentifyHeader(header []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(header); err != nil {
		return nil, errDecodingHeader(err)
	}

	root := doc.Root()
	if root == nil || root.Tag != rootTag || root.SelectAttrValue("ObjectType", "") != rootObjectType {
		return nil, &FormatError{msg: "Invalid header root element"}
	}

	barcodes := selectAttributes(root, barcodeName, barcodeElement, kindString)
	if len(barcodes) != 1 {
		return nil, errBarcode(len(barcodes))
	}
	barcodes[0].SetText("")

	var arrays []*etree.Element
	for _, attr := range selectAttributes(root, imagesName, imagesElement, kindObjectArray) {
		arrays = append(arrays, attr.SelectElements("Array")...)
	}
	if len(arrays) != 1 {
		return nil, errImages(len(arrays))
	}
	images := arrays[0]

	var labels []*etree.Element
	for _, entry := range images.SelectElements(rootTag) {
		if entry.SelectAttrValue("ObjectType", "") != "DPScannedImage" {
			continue
		}
		for _, attr := range selectAttributes(entry, imageTypeName, imageTypeElement, kindString) {
			if attr.Text() == labelImageType {
				labels = append(labels, entry)
				break
			}
		}
	}
	if len(labels) != 1 {
		return nil, errLabel(len(labels))
	}
	images.RemoveChild(labels[0])

	// Serialize the body alone; the declaration line is fixed so the
	// output does not depend on how the producer wrote its prolog.
	body := etree.NewDocument()
	body.SetRoot(root)
	serialized, err := body.WriteToBytes()
	if err != nil {
		return nil, errDecodingHeader(err)
	}

	deid := make([]byte, 0, len(header))
	deid = append(deid, xmlDeclaration...)
	deid = append(deid, serialized...)
	padding := len(header) - len(deid)
	if padding < 0 {
		return nil, &FormatError{msg: "Deidentified header size must be lower than equal to the original header size"}
	}
	for i := 0; i < padding; i++ {
		deid = append(deid, '\n')
	}
	return deid, nil
}

// selectAttributes returns the direct Attribute children of parent that
// carry the given Name, Element and PMSVR kind under the DP group.
func selectAttributes(parent *etree.Element, name, element, kind string) []*etree.Element {
	var matched []*etree.Element
	for _, el := range parent.SelectElements("Attribute") {
		if el.SelectAttrValue("Name", "") != name {
			continue
		}
		if !strings.EqualFold(el.SelectAttrValue("Group", ""), attrGroup) {
			continue
		}
		if el.SelectAttrValue("Element", "") != element {
			continue
		}
		if el.SelectAttrValue("PMSVR", "") != kind {
			continue
		}
		matched = append(matched, el)
	}
	return matched
}
