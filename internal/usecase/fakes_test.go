package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/semmidev/serverbackup/internal/domain"
)

type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploads   []string
	deleted   []string
	uploadErr error
	listErr   error
	deleteErr map[string]error
	listCalls int
}

func newMemStore(keys ...string) *memStore {
	s := &memStore{objects: map[string][]byte{}, deleteErr: map[string]error{}}
	for _, k := range keys {
		s.objects[k] = []byte("old")
	}
	return s
}

func (s *memStore) Upload(ctx context.Context, localPath, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrMissingLocalFile, localPath)
	}
	s.objects[key] = data
	s.uploads = append(s.uploads, key)
	return nil
}

func (s *memStore) List(ctx context.Context, bucket, prefix string) ([]domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	objects := make([]domain.RemoteObject, 0)
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) {
			objects = append(objects, domain.RemoteObject{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *memStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[key]; err != nil {
		return err
	}
	if _, ok := s.objects[key]; !ok {
		return errors.New("no such key")
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeDB struct {
	names   []string
	listErr error
	dumpErr map[string]error
	dumped  []string
}

func (f *fakeDB) Dump(ctx context.Context, name, outputPath string) error {
	if err := f.dumpErr[name]; err != nil {
		return err
	}
	f.dumped = append(f.dumped, name)
	return os.WriteFile(outputPath, []byte("-- dump of "+name+"\n"), 0600)
}

func (f *fakeDB) ListDatabases(ctx context.Context) ([]string, error) {
	return f.names, f.listErr
}

type failingCompressor struct{}

func (failingCompressor) Compress(src, dst string) error {
	return errors.New("disk full")
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

type testLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
	errs  []string
}

func (l *testLogger) Infof(template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(template, args...))
}

func (l *testLogger) Warnf(template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(template, args...))
}

func (l *testLogger) Errorf(template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, fmt.Sprintf(template, args...))
}
