// Package convert implements the conversion port: it turns an exported
// single-page PDF into a PNG with uniform margins trimmed.
//
// Two implementations are provided. ExecConverter drives external tools
// (pdftoppm then ImageMagick convert -trim). PdfiumConverter renders in
// process with pdfium compiled to WebAssembly and trims with TrimImage.
package convert
