package rendering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe CV.pdf", "Jane_Doe_CV_Resume.pdf"},
		{"resume.docx", "resume_Resume.pdf"},
		{"multi   space\tname.doc", "multi_space_name_Resume.pdf"},
		{"no-extension", "no-extension_Resume.pdf"},
		{"archive.tar.pdf", "archive.tar_Resume.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PDFFileName(tt.in))
		})
	}
}

func TestEncodeURIComponent(t *testing.T) {
	assert.Equal(t, "Jane_Doe_Resume.pdf", EncodeURIComponent("Jane_Doe_Resume.pdf"))
	assert.Equal(t, "a%20b", EncodeURIComponent("a b"))
	assert.Equal(t, "Jos%C3%A9_Resume.pdf", EncodeURIComponent("José_Resume.pdf"))
	assert.Equal(t, "!~*'()", EncodeURIComponent("!~*'()"))
	assert.Equal(t, "%22%3B%2F", EncodeURIComponent(`";/`))
}

func TestContentDisposition(t *testing.T) {
	got := ContentDisposition(PDFFileName("Jose María.pdf"))
	assert.Equal(t,
		`attachment; filename="Jose_Mar%C3%ADa_Resume.pdf"; filename*=UTF-8''Jose_Mar%C3%ADa_Resume.pdf`,
		got)
}
