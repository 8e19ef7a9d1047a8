package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

// Ingest полностью пересобирает индекс: загрузка -> чанки -> эмбеддинги -> rebuild.
// Манифест пишется только после успешной пересборки.
func (a *App) Ingest(ctx context.Context) (*Manifest, error) {
	start := time.Now()

	docs, err := a.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		fields := []zap.Field{zap.String("root", a.cfg.KnowledgeDir)}
		if prev, err := a.index.Count(ctx); err == nil {
			fields = append(fields, zap.Int("indexed_chunks", prev))
		}
		a.log.Warn("no documents loaded, the index will be emptied", fields...)
	}

	manifest := &Manifest{
		Files:          make([]FileInfo, 0, len(docs)),
		Documents:      len(docs),
		EmbeddingModel: a.embedder.Model(),
		Backend:        a.cfg.Index.Backend,
	}
	if abs, err := filepath.Abs(a.cfg.KnowledgeDir); err == nil {
		manifest.KnowledgeDir = abs
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		docChunks, err := a.chunker.Chunk(doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Path, err)
		}
		chunks = append(chunks, docChunks...)
		manifest.Files = append(manifest.Files, fileInfo(doc, len(docChunks)))
	}
	a.log.Info("documents chunked",
		zap.String("chunker", a.chunker.Name()),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := a.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder %s returned %d vectors for %d chunks", a.embedder.Model(), len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i] = chunks[i].WithEmbedding(vectors[i])
	}

	if err := a.index.Rebuild(ctx, chunks); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	manifest.Chunks = len(chunks)
	manifest.IngestedAt = time.Now().UTC()
	if err := saveManifest(a.cfg.ManifestFile, manifest); err != nil {
		a.log.Warn("failed to save manifest", zap.String("path", a.cfg.ManifestFile), zap.Error(err))
	}

	a.log.Info("ingestion finished",
		zap.Int("documents", manifest.Documents),
		zap.Int("chunks", manifest.Chunks),
		zap.Duration("took", time.Since(start)))
	return manifest, nil
}

func fileInfo(doc domain.Document, chunks int) FileInfo {
	info := FileInfo{Path: doc.Path, Category: doc.Category, Chunks: chunks}
	if st, err := os.Stat(filepath.FromSlash(doc.Path)); err == nil {
		info.Size = st.Size()
		info.LastModified = st.ModTime().UTC()
	}
	return info
}
