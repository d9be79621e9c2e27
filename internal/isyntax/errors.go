package isyntax

import "fmt"

// The four error kinds are terminal: when any of them is returned the
// stream has produced no output and the input must be considered
// untouched. They are never wrapped by this package, so callers can
// match them directly with errors.As.

// FormatError reports a header that cannot be located, decoded or
// rewritten within its original byte length.
type FormatError struct {
	msg   string
	cause error
}

func (e *FormatError) Error() string { return e.msg }

func (e *FormatError) Unwrap() error { return e.cause }

// BarcodeError reports a missing or ambiguous barcode attribute.
type BarcodeError struct {
	msg string

	// Count is the number of matching barcode elements found.
	Count int
}

func (e *BarcodeError) Error() string { return e.msg }

// ImagesError reports a missing or ambiguous scanned-images array.
type ImagesError struct {
	msg string

	// Count is the number of matching array elements found.
	Count int
}

func (e *ImagesError) Error() string { return e.msg }

// LabelError reports a missing or ambiguous label image entry.
type LabelError struct {
	msg string

	// Count is the number of matching label entries found.
	Count int
}

func (e *LabelError) Error() string { return e.msg }

func errHeaderNotFound() error {
	return &FormatError{msg: "Header not found"}
}

func errDecodingHeader(cause error) error {
	return &FormatError{msg: "Error decoding header", cause: cause}
}

func errBarcode(count int) error {
	if count == 0 {
		return &BarcodeError{msg: "Barcode not found"}
	}
	return &BarcodeError{
		msg:   fmt.Sprintf("Single barcode element expected, %d found", count),
		Count: count,
	}
}

func errImages(count int) error {
	if count == 0 {
		return &ImagesError{msg: "Images not found"}
	}
	return &ImagesError{
		msg:   fmt.Sprintf("Single images element expected, %d found", count),
		Count: count,
	}
}

func errLabel(count int) error {
	if count == 0 {
		return &LabelError{msg: "Label not found"}
	}
	return &LabelError{
		msg:   fmt.Sprintf("Single label expected, %d found", count),
		Count: count,
	}
}
