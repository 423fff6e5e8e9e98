package retriever

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/providers"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/postgres"
)

// PgvectorRetriever implements PassageRetriever over the passages table,
// ranked by cosine distance against a stored embedding column.
type PgvectorRetriever struct {
	db         *sqlx.DB
	embedder   providers.Embedder
	collection string
}

type passageRow struct {
	DocID    string  `db:"doc_id"`
	Title    string  `db:"title"`
	Org      string  `db:"org"`
	Year     string  `db:"year"`
	Body     string  `db:"body"`
	Distance float64 `db:"distance"`
}

// NewPgvectorRetriever creates a retriever over one passage collection
// ("policy_docs" or "db_facts").
func NewPgvectorRetriever(client *postgres.Client, embedder providers.Embedder, collection string) providers.PassageRetriever {
	return &PgvectorRetriever{
		db:         sqlx.NewDb(client.DB(), "postgres"),
		embedder:   embedder,
		collection: collection,
	}
}

// Retrieve returns the k nearest passages for the query. An empty slice is a
// valid result; embedding failures surface as errors for the caller to treat
// as soft.
func (r *PgvectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]entities.EvidenceDoc, error) {
	if k <= 0 {
		return []entities.EvidenceDoc{}, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var rows []passageRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT doc_id, title, org, year, body,
		       embedding <=> $1 AS distance
		FROM passages
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(vec), r.collection, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}

	docs := make([]entities.EvidenceDoc, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, entities.EvidenceDoc{
			DocID: row.DocID,
			Title: row.Title,
			Org:   row.Org,
			Year:  row.Year,
			Text:  row.Body,
			// cosine distance in [0,2]; smaller is closer
			Relevance: 1.0 - row.Distance,
		})
	}
	return docs, nil
}
