// Package contextbuild turns ranked retrieval candidates into a bounded
// prompt context with source attribution.
package contextbuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

// NoContextSentinel is returned when no candidate survives filtering, so
// downstream prompting always has non-empty context framing.
const NoContextSentinel = "no relevant information found"

const snippetLen = 200

// MetadataResolver resolves origin metadata for a batch of origin ids in a
// single lookup.
type MetadataResolver interface {
	ResolveFiles(ctx context.Context, ids []string) (map[string]model.FileMeta, error)
}

// Assembler filters, truncates and attributes retrieval candidates.
type Assembler struct {
	resolver      MetadataResolver
	viewerBaseURL string
}

// NewAssembler creates a context assembler. Origin ids that the resolver
// cannot find fall back to a viewer URL derived from viewerBaseURL.
func NewAssembler(resolver MetadataResolver, viewerBaseURL string) *Assembler {
	return &Assembler{resolver: resolver, viewerBaseURL: viewerBaseURL}
}

// Assemble drops candidates at or below the similarity floor, accumulates
// their content up to maxContextBytes (truncating the last candidate), and
// collects up to maxSources citations. The two budgets are independent:
// context accumulation continues after the source budget is exhausted.
// Metadata lookup failure degrades to derived attribution, never an error.
func (a *Assembler) Assemble(
	ctx context.Context,
	candidates []model.RetrievalCandidate,
	similarityFloor float64,
	maxContextBytes int,
	maxSources int,
) (string, []model.Source) {
	surviving := candidates[:0:0]
	for _, c := range candidates {
		if c.Similarity > similarityFloor {
			surviving = append(surviving, c)
		}
	}
	if len(surviving) == 0 {
		return NoContextSentinel, nil
	}

	// One batched metadata lookup for every referenced origin.
	ids := make([]string, 0, len(surviving))
	seen := make(map[string]struct{}, len(surviving))
	for _, c := range surviving {
		if c.OriginID == "" {
			continue
		}
		if _, dup := seen[c.OriginID]; dup {
			continue
		}
		seen[c.OriginID] = struct{}{}
		ids = append(ids, c.OriginID)
	}

	var files map[string]model.FileMeta
	if a.resolver != nil && len(ids) > 0 {
		if resolved, err := a.resolver.ResolveFiles(ctx, ids); err == nil {
			files = resolved
		}
	}

	var b strings.Builder
	var sources []model.Source

	for _, c := range surviving {
		name, url := a.attribution(c, files)

		part := fmt.Sprintf("[%s]\n%s", name, c.Content)
		if b.Len() > 0 {
			part = "\n\n" + part
		}

		truncated := false
		if b.Len()+len(part) > maxContextBytes {
			part = part[:maxContextBytes-b.Len()]
			truncated = true
		}
		b.WriteString(part)

		if len(sources) < maxSources {
			sources = append(sources, model.Source{
				Content:    snippet(c.Content),
				Similarity: c.Similarity,
				Name:       name,
				URL:        url,
			})
		}

		if truncated {
			break
		}
	}

	return b.String(), sources
}

// attribution picks the display name and viewer URL for a candidate. Missing
// file metadata falls back to a derived viewer URL.
func (a *Assembler) attribution(c model.RetrievalCandidate, files map[string]model.FileMeta) (string, string) {
	if meta, ok := files[c.OriginID]; ok {
		return meta.Name, a.viewerBaseURL + "/" + meta.ID
	}
	name := c.SourceName
	if name == "" {
		name = "Document"
	}
	url := ""
	if c.OriginID != "" {
		url = a.viewerBaseURL + "/" + c.OriginID
	}
	return name, url
}

func snippet(content string) string {
	if len(content) > snippetLen {
		return content[:snippetLen] + "..."
	}
	return content
}
