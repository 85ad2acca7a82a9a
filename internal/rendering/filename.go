package rendering

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// PDFFileName derives the download name from the uploaded file name:
// "Jane Doe CV.docx" becomes "Jane_Doe_CV_Resume.pdf".
func PDFFileName(fileName string) string {
	base := fileName
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return whitespaceRe.ReplaceAllString(base, "_") + "_Resume.pdf"
}

// ContentDisposition builds an attachment header carrying both the plain and
// the RFC 5987 filename parameters.
func ContentDisposition(pdfName string) string {
	enc := EncodeURIComponent(pdfName)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, enc, enc)
}

// EncodeURIComponent percent-encodes every byte outside the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
