package doctype

import (
	"testing"

	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify_ByExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"deck.pptx", models.DocumentTypeSlide},
		{"deck.PPT", models.DocumentTypeSlide},
		{"deck.odp", models.DocumentTypeSlide},
		{"budget.xlsx", models.DocumentTypeCell},
		{"budget.xls", models.DocumentTypeCell},
		{"budget.ods", models.DocumentTypeCell},
		{"export.csv", models.DocumentTypeCell},
		{"report.docx", models.DocumentTypeWord},
		{"report.pdf", models.DocumentTypeWord},
		{"notes.weird", models.DocumentTypeWord},
		{"noext", models.DocumentTypeWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name, nil))
		})
	}
}

func TestClassify_SniffsExtensionless(t *testing.T) {
	csv := []byte("a,b,c\n1,2,3\n4,5,6\n")
	assert.Equal(t, models.DocumentTypeCell, Classify("export", csv))

	pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	assert.Equal(t, models.DocumentTypeWord, Classify("scan", pdf))
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "docx", FileType("Report.DOCX", nil))
	assert.Equal(t, "pdf", FileType("scan", []byte("%PDF-1.4\n")))
	assert.Equal(t, "", FileType("blob", nil))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.pdf", nil))
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		ContentType("my-document", nil))
	assert.Equal(t, "application/octet-stream", ContentType("blob", nil))
	assert.Equal(t, "application/pdf", ContentType("blob", []byte("%PDF-1.4\n")))
}
