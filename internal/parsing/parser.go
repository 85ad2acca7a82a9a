package parsing

import (
	"context"
	"encoding/base64"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// ParseTemperature is used for every provider when parsing documents
const ParseTemperature = 0.1

// ProviderSource resolves a completion provider by name
type ProviderSource interface {
	Get(ctx context.Context, p llm.Provider) (llm.CompletionProvider, error)
}

// Parser runs validate, encode, build, complete and extract for one document
type Parser struct {
	providers ProviderSource
}

// NewParser creates a Parser backed by the given providers
func NewParser(providers ProviderSource) *Parser {
	return &Parser{providers: providers}
}

// Parse converts one uploaded document into a StructuredResume
func (p *Parser) Parse(ctx context.Context, provider llm.Provider, file *FileInput) (*types.StructuredResume, error) {
	if file != nil {
		file.MIMEType = DetectMIMEType(file.Name, file.MIMEType, file.Data)
	}
	if err := ValidateFile(file); err != nil {
		return nil, err
	}

	log := observability.Logger().WithFields(logrus.Fields{
		"provider":  provider,
		"file":      file.Name,
		"mime_type": file.MIMEType,
		"bytes":     len(file.Data),
	})

	cp, err := p.providers.Get(ctx, provider)
	if err != nil {
		return nil, err
	}
	if closer, ok := cp.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	messages := BuildRequest(provider, file.Name, file.MIMEType, base64.StdEncoding.EncodeToString(file.Data))

	start := time.Now()
	raw, err := cp.Complete(ctx, messages, llm.Options{Temperature: llm.Temp(ParseTemperature)})
	if err != nil {
		log.WithError(err).Warn("completion failed")
		return nil, err
	}
	log.WithField("elapsed", time.Since(start).String()).Info("completion received")

	resume, err := ExtractStructured(raw)
	if err != nil {
		log.WithError(err).Warn("completion could not be parsed")
		return nil, err
	}
	return resume, nil
}
