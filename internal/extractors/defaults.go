package extractors

import (
	"github.com/custodia-labs/docchat/internal/extractors/docx"
	"github.com/custodia-labs/docchat/internal/extractors/html"
	"github.com/custodia-labs/docchat/internal/extractors/markdown"
	"github.com/custodia-labs/docchat/internal/extractors/pdf"
	"github.com/custodia-labs/docchat/internal/extractors/plaintext"
)

// NewDefaultRegistry returns a registry with all built-in extractors.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		pdf.New(),
		docx.New(),
		html.New(),
		markdown.New(),
		plaintext.New(),
	)
}
