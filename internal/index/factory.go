package index

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"kb_rag/internal/config"
	"kb_rag/internal/domain"
)

// New открывает индекс выбранного в конфиге backend'а
func New(ctx context.Context, cfg *config.Config, ef chromem.EmbeddingFunc, log *zap.Logger) (Index, error) {
	switch cfg.Index.Backend {
	case config.BackendChromem:
		return NewChromem(cfg.Index.Dir, cfg.Index.Collection, cfg.Index.Compress, ef, log), nil
	case config.BackendPgvector:
		return OpenPgvector(ctx, cfg.Index.PgDSN, cfg.Index.PgTable, log)
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, cfg.Index.Backend)
	}
}
