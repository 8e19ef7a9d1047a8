package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

// Chromem - индекс в persistent-базе chromem-go (каталог на диске).
// Новый индекс пишется в соседний каталог и подменяет старый через rename,
// так что на диске всегда лежит либо старый, либо новый индекс целиком.
// Между процессами пересборка и чтение разделены advisory-lock'ом (flock).
type Chromem struct {
	mu         sync.RWMutex
	dir        string
	collection string
	compress   bool
	ef         chromem.EmbeddingFunc
	log        *zap.Logger

	db *chromem.DB // открытая база, nil до первого обращения
}

// NewChromem создаёт индекс в каталоге dir. ef нужен chromem-go для
// коллекции; векторы чанков приходят уже посчитанными.
func NewChromem(dir, collection string, compress bool, ef chromem.EmbeddingFunc, log *zap.Logger) *Chromem {
	return &Chromem{
		dir:        filepath.Clean(dir),
		collection: collection,
		compress:   compress,
		ef:         ef,
		log:        log,
	}
}

func (c *Chromem) lockPath() string    { return c.dir + ".lock" }
func (c *Chromem) stagingPath() string { return c.dir + ".staging" }

func (c *Chromem) Rebuild(ctx context.Context, chunks []domain.Chunk) error {
	if err := validate(chunks); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lock, err := c.tryLock(true)
	if err != nil {
		return err
	}
	defer c.unlock(lock)

	staging := c.stagingPath()
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: remove stale staging %s: %w", domain.ErrStorageUnavailable, staging, err)
	}
	if err := c.write(ctx, staging, chunks); err != nil {
		c.removeBestEffort(staging)
		return fmt.Errorf("%w: write index %s: %w", domain.ErrStorageUnavailable, staging, err)
	}

	backup := ""
	if _, err := os.Stat(c.dir); err == nil {
		backup = fmt.Sprintf("%s.old-%d", c.dir, time.Now().UnixNano())
		if err := os.Rename(c.dir, backup); err != nil {
			c.removeBestEffort(staging)
			return fmt.Errorf("%w: move old index %s: %w", domain.ErrStorageUnavailable, c.dir, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		c.removeBestEffort(staging)
		return fmt.Errorf("%w: stat index %s: %w", domain.ErrStorageUnavailable, c.dir, err)
	}

	if err := os.Rename(staging, c.dir); err != nil {
		if backup != "" {
			if rbErr := os.Rename(backup, c.dir); rbErr != nil {
				c.log.Error("failed to restore previous index", zap.String("backup", backup), zap.Error(rbErr))
			}
		}
		c.removeBestEffort(staging)
		return fmt.Errorf("%w: swap in new index %s: %w", domain.ErrStorageUnavailable, c.dir, err)
	}

	// база в памяти помнит путь staging, поэтому следующее чтение откроет c.dir заново
	c.db = nil
	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			c.log.Warn("failed to remove previous index", zap.String("path", backup), zap.Error(err))
		}
	}

	c.log.Info("index rebuilt", zap.String("dir", c.dir), zap.Int("chunks", len(chunks)))
	return nil
}

func (c *Chromem) write(ctx context.Context, dir string, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := chromem.NewPersistentDB(dir, c.compress)
	if err != nil {
		return err
	}
	coll, err := db.CreateCollection(c.collection, nil, c.ef)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		meta := make(map[string]string, len(ch.Metadata))
		for k, v := range ch.Metadata {
			meta[k] = v
		}
		docs = append(docs, chromem.Document{
			ID:        ch.ID,
			Metadata:  meta,
			Embedding: ch.Embedding,
			Content:   ch.Content,
		})
	}
	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return err
	}
	// AddDocuments молча пропускает документы после отмены контекста
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := coll.Count(); n != len(chunks) {
		return fmt.Errorf("wrote %d of %d chunks", n, len(chunks))
	}
	return nil
}

func (c *Chromem) Search(ctx context.Context, query []float32, k int) ([]domain.Match, error) {
	if k <= 0 {
		return []domain.Match{}, nil
	}
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	coll := c.collectionLocked()
	if coll == nil {
		return []domain.Match{}, nil
	}
	n := min(k, coll.Count())
	if n == 0 {
		return []domain.Match{}, nil
	}
	results, err := coll.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]domain.Match, 0, len(results))
	for _, r := range results {
		ch := chunkFromMetadata(r.ID, r.Content, domain.Metadata(r.Metadata))
		ch.Embedding = r.Embedding
		matches = append(matches, domain.Match{Chunk: ch, Similarity: r.Similarity})
	}
	return matches, nil
}

func (c *Chromem) Count(_ context.Context) (int, error) {
	if err := c.ensureOpen(); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	coll := c.collectionLocked()
	if coll == nil {
		return 0, nil
	}
	return coll.Count(), nil
}

func (c *Chromem) Close() error { return nil }

// collectionLocked вызывается под c.mu. nil - индекса нет.
func (c *Chromem) collectionLocked() *chromem.Collection {
	if c.db == nil {
		return nil
	}
	return c.db.GetCollection(c.collection, c.ef)
}

// ensureOpen открывает базу с диска при первом обращении.
// Отсутствующий каталог - не ошибка, c.db остаётся nil.
func (c *Chromem) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}
	if _, err := os.Stat(c.dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	lock, err := c.tryLock(false)
	if err != nil {
		return err
	}
	defer c.unlock(lock)

	if _, err := os.Stat(c.dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	db, err := chromem.NewPersistentDB(c.dir, c.compress)
	if err != nil {
		return fmt.Errorf("%w: open index %s: %w", domain.ErrStorageUnavailable, c.dir, err)
	}
	c.db = db
	return nil
}

// tryLock берёт advisory-lock рядом с каталогом индекса: exclusive для
// пересборки, shared для чтения. Lock освобождает ядро, даже если процесс упал.
func (c *Chromem) tryLock(exclusive bool) (*flock.Flock, error) {
	path := c.lockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create index parent: %w", domain.ErrStorageUnavailable, err)
	}

	lock := flock.New(path)
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = lock.TryLock()
	} else {
		ok, err = lock.TryRLock()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %w", domain.ErrStorageUnavailable, path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: index %s is being rebuilt by another process", domain.ErrStorageUnavailable, c.dir)
	}
	return lock, nil
}

func (c *Chromem) unlock(lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		c.log.Warn("failed to release index lock", zap.String("path", lock.Path()), zap.Error(err))
	}
}

func (c *Chromem) removeBestEffort(path string) {
	if err := os.RemoveAll(path); err != nil {
		c.log.Error("failed to clean up partial index", zap.String("dir", path), zap.Error(err))
	}
}
