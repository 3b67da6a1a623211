package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/zerr"

	logx "tilesync/pkg/logx"
)

const compactEvery = 500

// fileStore keeps the whole state in memory and persists it as:
//   - <prefix>.snapshot.json (compacted state)
//   - <prefix>.journal.jsonl (append-only ops since the snapshot)
//
// The journal is folded into the snapshot every compactEvery writes and on Close.
type fileStore struct {
	log logx.Logger

	mu       sync.RWMutex
	st       *state
	snapPath string
	journal  *os.File
	writes   int
}

type journalOp struct {
	Op     string `json:"op"` // put | del | sadd | srem
	Key    string `json:"k"`
	Value  string `json:"v,omitempty"`
	Member string `json:"m,omitempty"`
}

type snapshotFile struct {
	KV   map[string]string   `json:"kv"`
	Sets map[string][]string `json:"sets"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, zerr.With(zerr.Wrap(ErrPathRequired, "open file storage"), "driver", DriverFile)
	}
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "create storage dir"), "dir", dir)
	}

	snapPath := prefix + ".snapshot.json"
	journalPath := prefix + ".journal.jsonl"

	st := newState()
	if err := loadSnapshot(snapPath, st); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("storage snapshot unreadable; starting from journal", logx.String("path", snapPath), logx.Err(err))
	}
	n, err := replayJournal(journalPath, st)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("storage journal replay stopped early", logx.String("path", journalPath), logx.Err(err))
	}

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "open storage journal"), "path", journalPath)
	}
	log.Debug("file storage opened", logx.String("path", snapPath), logx.Int("replayed", n), logx.Int("keys", len(st.KV)))

	return &fileStore{log: log, st: st, snapPath: snapPath, journal: jf}, nil
}

func (s *fileStore) GetString(_ context.Context, key, def string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.journal == nil {
		return def, ErrClosed
	}
	if v, ok := s.st.KV[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *fileStore) PutString(_ context.Context, key, value string) error {
	return s.apply(journalOp{Op: "put", Key: key, Value: value})
}

func (s *fileStore) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	s.mu.RLock()
	v, ok := s.st.KV[key]
	closed := s.journal == nil
	s.mu.RUnlock()
	if closed {
		return def, ErrClosed
	}
	if !ok {
		return def, nil
	}
	return parseBool(key, v, def)
}

func (s *fileStore) PutBool(_ context.Context, key string, value bool) error {
	return s.apply(journalOp{Op: "put", Key: key, Value: formatBool(value)})
}

func (s *fileStore) AddToSet(_ context.Context, set, member string) error {
	return s.apply(journalOp{Op: "sadd", Key: set, Member: member})
}

func (s *fileStore) RemoveFromSet(_ context.Context, set, member string) error {
	return s.apply(journalOp{Op: "srem", Key: set, Member: member})
}

func (s *fileStore) GetSet(_ context.Context, set string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.journal == nil {
		return nil, ErrClosed
	}
	return s.st.members(set), nil
}

func (s *fileStore) Delete(_ context.Context, key string) error {
	return s.apply(journalOp{Op: "del", Key: key})
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	cerr := s.compactLocked()
	err := s.journal.Close()
	s.journal = nil
	if cerr != nil {
		return cerr
	}
	return err
}

// apply records op in the journal first, then mutates the in-memory state.
func (s *fileStore) apply(op journalOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return ErrClosed
	}
	if err := json.NewEncoder(s.journal).Encode(op); err != nil {
		return zerr.With(zerr.Wrap(err, "append journal"), "key", op.Key)
	}
	applyOp(s.st, op)

	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("storage compact failed", logx.Err(err))
		}
	}
	return nil
}

func applyOp(st *state, op journalOp) {
	switch op.Op {
	case "put":
		st.put(op.Key, op.Value)
	case "del":
		st.del(op.Key)
	case "sadd":
		st.add(op.Key, op.Member)
	case "srem":
		st.remove(op.Key, op.Member)
	}
}

func (s *fileStore) compactLocked() error {
	snap := snapshotFile{KV: s.st.KV, Sets: make(map[string][]string, len(s.st.Sets))}
	for name := range s.st.Sets {
		snap.Sets[name] = s.st.members(name)
	}

	tmp := s.snapPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapPath); err != nil {
		return err
	}
	if err := s.journal.Truncate(0); err != nil {
		return err
	}
	_, err = s.journal.Seek(0, io.SeekEnd)
	return err
}

func loadSnapshot(path string, st *state) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var snap snapshotFile
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return err
	}
	for k, v := range snap.KV {
		st.put(k, v)
	}
	for name, members := range snap.Sets {
		for _, m := range members {
			st.add(name, m)
		}
	}
	return nil
}

func replayJournal(path string, st *state) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var op journalOp
		// A torn last line after a crash is skipped.
		if err := json.Unmarshal(sc.Bytes(), &op); err != nil || op.Key == "" {
			continue
		}
		applyOp(st, op)
		n++
	}
	return n, sc.Err()
}
