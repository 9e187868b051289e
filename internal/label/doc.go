// Package label reads the printed specimen identifier from the label corner
// of a slide scan using Tesseract OCR.
//
// The label is a convenience for tagging reports and logs; OCR failure or an
// empty label never fails a scan.
package label
