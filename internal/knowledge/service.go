package knowledge

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/minaai/internal/embeddings"
	"github.com/antoniostano/minaai/internal/intent"
)

const (
	defaultSimilarityThreshold = 0.25
	defaultTopK                = 5
)

// Embedder turns a query into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Service assembles knowledge-base sections from the CRM database: product
// rows by vector similarity and company info by direct lookup. Retrieval is
// best-effort; a failed section is simply omitted.
type Service struct {
	pool      *pgxpool.Pool
	embedder  Embedder
	companyID string
	threshold float64
	topK      int
}

func New(ctx context.Context, databaseURL string, embedder Embedder, companyID string) (*Service, error) {
	s := &Service{
		embedder:  embedder,
		companyID: companyID,
		threshold: defaultSimilarityThreshold,
		topK:      defaultTopK,
	}
	if strings.TrimSpace(databaseURL) == "" {
		return s, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect crm postgres: %w", err)
	}
	s.pool = pool
	return s, nil
}

// BuildSections selects which KB sections the detected intents need.
func (s *Service) BuildSections(ctx context.Context, analysis intent.Analysis, query string) map[string][]string {
	sections := make(map[string][]string)
	if analysis.Has("product") {
		if items := s.ProductContext(ctx, query); len(items) > 0 {
			sections["PRODUCT_DATA"] = items
		}
	}
	if analysis.Has("company") || len(analysis.CompanyTopics) > 0 {
		if items := s.CompanyContext(ctx); len(items) > 0 {
			sections["COMPANY_DATA"] = items
		}
	}
	return sections
}

// ProductContext runs a pgvector cosine-similarity search over product
// summaries.
func (s *Service) ProductContext(ctx context.Context, query string) []string {
	if s.pool == nil || s.embedder == nil {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("knowledge: product query embedding failed: %v", err)
		return nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT summary, 1 - (embeddings <=> $1::vector) AS similarity
		 FROM products
		 WHERE embeddings IS NOT NULL
		   AND 1 - (embeddings <=> $1::vector) > $2
		 ORDER BY similarity DESC
		 LIMIT $3`,
		embeddings.VectorLiteral(vec), s.threshold, s.topK,
	)
	if err != nil {
		log.Printf("knowledge: product context query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var snippets []string
	for rows.Next() {
		var content string
		var similarity float64
		if err := rows.Scan(&content, &similarity); err != nil {
			log.Printf("knowledge: scan product row failed: %v", err)
			return nil
		}
		snippets = append(snippets, content)
	}
	if err := rows.Err(); err != nil {
		log.Printf("knowledge: iterate product rows failed: %v", err)
		return nil
	}
	return compactSnippets(snippets, s.topK)
}

// CompanyContext fetches the company profile rows directly.
func (s *Service) CompanyContext(ctx context.Context) []string {
	if s.pool == nil {
		return nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT company_info FROM company_info WHERE user_uuid = $1`, s.companyID)
	if err != nil {
		log.Printf("knowledge: company context query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var snippets []string
	for rows.Next() {
		var content *string
		if err := rows.Scan(&content); err != nil {
			log.Printf("knowledge: scan company row failed: %v", err)
			return nil
		}
		if content != nil {
			snippets = append(snippets, *content)
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("knowledge: iterate company rows failed: %v", err)
		return nil
	}
	return compactSnippets(snippets, s.topK)
}

// SystemPrompt returns the tenant's custom base prompt, or "" when none is
// configured.
func (s *Service) SystemPrompt(ctx context.Context) string {
	if s.pool == nil {
		return ""
	}
	var prompt string
	err := s.pool.QueryRow(ctx,
		`SELECT system_prompt FROM company_info
		 WHERE user_uuid = $1 AND system_prompt IS NOT NULL AND system_prompt != ''
		 LIMIT 1`, s.companyID).Scan(&prompt)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(prompt)
}

func (s *Service) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// compactSnippets numbers the snippets for LLM consumption, capped at topK.
func compactSnippets(snippets []string, topK int) []string {
	if len(snippets) == 0 {
		return nil
	}
	if topK > 0 && len(snippets) > topK {
		snippets = snippets[:topK]
	}
	out := make([]string, 0, len(snippets))
	for i, s := range snippets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%d. %s", i+1, s))
	}
	return out
}
