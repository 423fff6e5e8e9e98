package providers

import (
	"context"

	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
)

// PassageRetriever returns ranked text snippets for a query. An empty result
// is valid; the evidence assembler renders a documented "no evidence" block.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]entities.EvidenceDoc, error)
}
