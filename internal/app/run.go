package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"kb_rag/internal/domain"
	"kb_rag/internal/rag"
)

// Ask отвечает на один вопрос
func (a *App) Ask(ctx context.Context, question string) (rag.Answer, error) {
	gen, err := a.answerer(ctx)
	if err != nil {
		return rag.Answer{}, err
	}
	return gen.Answer(ctx, question)
}

// AskAndPrint отвечает на вопрос и печатает ответ с источниками
func (a *App) AskAndPrint(ctx context.Context, question string) error {
	ans, err := a.Ask(ctx, question)
	if err != nil {
		return err
	}
	printAnswer(a.out, ans)
	return nil
}

// Run - интерактивный режим: вопрос на строку, выход по EOF или сигналу
func (a *App) Run(ctx context.Context) error {
	if _, err := a.answerer(ctx); err != nil {
		return err
	}

	a.log.Info("chat started")
	fmt.Fprintln(a.out, "Ask a question about the knowledge base (one per line). Ctrl+D or Ctrl+C to exit.")

	scanner := bufio.NewScanner(a.in)

	// Увеличим буфер, если строки будут длинные
	const maxLineSize = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutting down chat")
			return nil
		default:
			fmt.Fprint(a.out, "> ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("stdin error: %w", err)
				}
				a.log.Info("stdin closed")
				return nil
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if err := a.AskAndPrint(ctx, line); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.log.Error("failed to answer", zap.String("question", line), zap.Error(err))
				fmt.Fprintf(a.out, "Error: %v\n", err)
			}
		}
	}
}

func printAnswer(w io.Writer, ans rag.Answer) {
	fmt.Fprintf(w, "\n%s\n", ans.Text)
	if len(ans.Sources) == 0 {
		fmt.Fprintln(w, "\n(no matching context in the knowledge base)")
		return
	}

	fmt.Fprintf(w, "\nSources (%d):\n", len(ans.Sources))
	for i, m := range ans.Sources {
		fmt.Fprintf(w, "  %d. %s / %s [%s] (similarity: %.2f)\n",
			i+1, m.Chunk.EntityID, m.Chunk.SectionTitle, m.Chunk.Metadata.Get(domain.MetaSource, "?"), m.Similarity)
	}
	fmt.Fprintln(w)
}
