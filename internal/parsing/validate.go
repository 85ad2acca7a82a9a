package parsing

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Supported document MIME types
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDOC  = "application/msword"
)

var allowedMIMETypes = map[string]bool{
	MIMEPDF:  true,
	MIMEDOCX: true,
	MIMEDOC:  true,
}

// Validation messages returned to clients
const (
	MsgNoFile          = "No file provided"
	MsgInvalidFileType = "Invalid file type. Only PDF and DOCX files are supported."
)

// FileInput is an uploaded document
type FileInput struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ValidateFile rejects a missing file or any type outside PDF, DOCX and DOC.
func ValidateFile(f *FileInput) error {
	if f == nil || (f.Name == "" && len(f.Data) == 0) {
		return &ValidationError{Field: "file", Message: MsgNoFile}
	}
	if !allowedMIMETypes[baseMIME(f.MIMEType)] {
		return &ValidationError{Field: "file", Message: MsgInvalidFileType}
	}
	return nil
}

// DetectMIMEType resolves the document type: the declared type when present,
// then the file extension, then content sniffing.
func DetectMIMEType(fileName, declared string, data []byte) string {
	if d := baseMIME(declared); d != "" && d != "application/octet-stream" {
		return d
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MIMEPDF
	case ".docx":
		return MIMEDOCX
	case ".doc":
		return MIMEDOC
	}

	if len(data) > 0 {
		return baseMIME(mimetype.Detect(data).String())
	}
	return "application/octet-stream"
}

// baseMIME strips parameters such as "; charset=utf-8"
func baseMIME(m string) string {
	if i := strings.Index(m, ";"); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
