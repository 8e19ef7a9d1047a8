// Package loader читает markdown-документы базы знаний.
// Каждая папка верхнего уровня задаёт категорию для всех файлов внутри неё.
package loader

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader обходит корневую папку базы знаний
type Loader struct {
	root       string
	extensions map[string]struct{}
	log        *zap.Logger
}

// New создаёт загрузчик для корня root
func New(root string, log *zap.Logger) *Loader {
	return &Loader{
		root: root,
		extensions: map[string]struct{}{
			".md":       {},
			".markdown": {},
		},
		log: log,
	}
}

// Load возвращает документы из всех папок-категорий.
// Отсутствующий корень - пустой результат и предупреждение.
// Нечитаемые папки и файлы пропускаются. Порядок не гарантируется.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Warn("knowledge base directory not found", zap.String("root", l.root))
			return nil, nil
		}
		l.log.Warn("knowledge base directory unreadable", zap.Error(&domain.LoadError{Path: l.root, Err: err}))
		return nil, nil
	}

	var docs []domain.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}

		category := entry.Name()
		folder := filepath.Join(l.root, category)
		folderDocs := l.loadFolder(ctx, folder, category)
		l.log.Debug("folder loaded", zap.String("category", category), zap.Int("documents", len(folderDocs)))
		docs = append(docs, folderDocs...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.log.Info("documents loaded", zap.String("root", l.root), zap.Int("documents", len(docs)))
	return docs, nil
}

func (l *Loader) loadFolder(ctx context.Context, folder, category string) []domain.Document {
	var docs []domain.Document

	_ = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.skip(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !l.accepts(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			l.skip(path, err)
			return nil
		}

		docs = append(docs, domain.Document{
			Path:     filepath.ToSlash(path),
			Category: category,
			Content:  string(bytes.TrimPrefix(data, utf8BOM)),
		})
		return nil
	})

	return docs
}

func (l *Loader) accepts(path string) bool {
	_, ok := l.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (l *Loader) skip(path string, err error) {
	l.log.Warn("skipping unreadable path", zap.Error(&domain.LoadError{Path: path, Err: err}))
}
