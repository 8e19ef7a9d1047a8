package app

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Status - манифест последней индексации и текущий размер индекса
type Status struct {
	Manifest *Manifest
	Count    int
}

func (a *App) Status(ctx context.Context) (Status, error) {
	m, err := loadManifest(a.cfg.ManifestFile)
	if err != nil {
		return Status{}, err
	}
	n, err := a.index.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("count index: %w", err)
	}
	return Status{Manifest: m, Count: n}, nil
}

// PrintStatus выводит состояние в человекочитаемом виде
func (a *App) PrintStatus(ctx context.Context) error {
	st, err := a.Status(ctx)
	if err != nil {
		return err
	}
	writeStatus(a.out, st, a.cfg.Index.Backend)
	return nil
}

func writeStatus(w io.Writer, st Status, backend string) {
	fmt.Fprintf(w, "Index backend: %s\n", backend)
	fmt.Fprintf(w, "Indexed chunks: %d\n", st.Count)

	if st.Manifest == nil {
		fmt.Fprintln(w, "No ingestion manifest found. Run `kb_rag ingest`.")
		return
	}
	m := st.Manifest
	fmt.Fprintf(w, "Last ingestion: %s\n", m.IngestedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Knowledge base: %s\n", m.KnowledgeDir)
	fmt.Fprintf(w, "Embedding model: %s\n", m.EmbeddingModel)
	fmt.Fprintf(w, "Documents: %d, chunks: %d\n", m.Documents, m.Chunks)

	byCategory := map[string]int{}
	var order []string
	for _, f := range m.Files {
		if _, ok := byCategory[f.Category]; !ok {
			order = append(order, f.Category)
		}
		byCategory[f.Category]++
	}
	for _, c := range order {
		fmt.Fprintf(w, "  %s: %d files\n", c, byCategory[c])
	}
	if m.Chunks != st.Count {
		fmt.Fprintln(w, "Warning: index size differs from the manifest; re-run ingest.")
	}
}
