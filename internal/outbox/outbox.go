// Package outbox is a file-backed append-only journal. Each record is one
// JSON line tagged with its entry type, so orders and telemetry can share a
// file or live in separate ones.
package outbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/storage"
)

const (
	TypeOrder     = "order"
	TypeTelemetry = "telemetry"
)

type OutboxEntry struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Event time.Time       `json:"event"`
}

// Journal appends records of one entry type to a JSONL file.
type Journal[T any] struct {
	mu    sync.Mutex
	path  string
	kind  string
	keyFn func(T) string
	keys  map[string]struct{}
}

// New opens a journal at path for entries of the given type. When keyFn is
// set, a second record with the same key is refused.
func New[T any](path, kind string, keyFn func(T) string) (*Journal[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Journal[T]{path: path, kind: kind, keyFn: keyFn}, nil
}

// Orders opens a journal of OrderRecords keyed by order id.
func Orders(path string) (*Journal[domain.OrderRecord], error) {
	return New(path, TypeOrder, func(o domain.OrderRecord) string { return o.ID })
}

// Telemetry opens a journal of RiskTelemetryRecords.
func Telemetry(path string) (*Journal[domain.RiskTelemetryRecord], error) {
	return New[domain.RiskTelemetryRecord](path, TypeTelemetry, nil)
}

func (j *Journal[T]) Save(ctx context.Context, record T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	var key string
	if j.keyFn != nil {
		if j.keys == nil {
			if err := j.loadKeysUnsafe(); err != nil {
				return domain.PersistenceFailure("read journal "+j.path, err)
			}
		}
		key = j.keyFn(record)
		if _, dup := j.keys[key]; dup {
			return domain.PersistenceFailure(fmt.Sprintf("duplicate %s %s", j.kind, key), nil)
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return domain.PersistenceFailure("marshal "+j.kind, err)
	}
	line, err := json.Marshal(OutboxEntry{Type: j.kind, Data: data, Event: time.Now().UTC()})
	if err != nil {
		return domain.PersistenceFailure("marshal entry", err)
	}
	if err := j.appendLine(line); err != nil {
		return domain.PersistenceFailure("append "+j.path, err)
	}
	if j.keyFn != nil {
		j.keys[key] = struct{}{}
	}
	return nil
}

func (j *Journal[T]) appendLine(line []byte) error {
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

func (j *Journal[T]) List(ctx context.Context, page, pageSize int) (storage.PageResult[T], error) {
	if page < 1 {
		return storage.PageResult[T]{}, fmt.Errorf("%w: got %d", storage.ErrInvalidPage, page)
	}
	if pageSize <= 0 {
		pageSize = storage.DefaultPageSize
	}
	if err := ctx.Err(); err != nil {
		return storage.PageResult[T]{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readUnsafe()
	if err != nil {
		return storage.PageResult[T]{}, domain.PersistenceFailure("read journal "+j.path, err)
	}
	start := storage.Offset(page, pageSize)
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return storage.NewPageResult(page, pageSize, len(all), all[start:end]), nil
}

// readUnsafe decodes every entry of this journal's type. Lines that fail to
// parse, or belong to another type, are skipped.
func (j *Journal[T]) readUnsafe() ([]T, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry OutboxEntry
		if err := json.Unmarshal(line, &entry); err != nil || entry.Type != j.kind {
			continue
		}
		var rec T
		if err := json.Unmarshal(entry.Data, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

func (j *Journal[T]) loadKeysUnsafe() error {
	all, err := j.readUnsafe()
	if err != nil {
		return err
	}
	j.keys = make(map[string]struct{}, len(all))
	for _, rec := range all {
		j.keys[j.keyFn(rec)] = struct{}{}
	}
	return nil
}
