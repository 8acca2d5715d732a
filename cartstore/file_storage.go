package cartstore

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FileStorage keeps one JSON file per key inside a directory. Writes go through a
// temporary file and a rename so readers never see a partial value. Several
// processes may share the directory; Watch picks up their writes via fsnotify.
type FileStorage struct {
	dir string
	log logrus.FieldLogger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watchers map[string][]chan struct{}
	done     chan struct{}
}

func NewFileStorage(dir string, log logrus.FieldLogger) *FileStorage {
	return &FileStorage{
		dir:      dir,
		log:      log,
		watchers: make(map[string][]chan struct{}),
	}
}

func (f *FileStorage) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create storage dir %s", f.dir)
	}
	return nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+".json")
}

func (f *FileStorage) Get(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "read %q", key)
	}
	return string(data), nil
}

func (f *FileStorage) Set(ctx context.Context, key, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %q", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "close temp file for %q", key)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replace %q", key)
	}
	return nil
}

func (f *FileStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

func (f *FileStorage) Ping(ctx context.Context) bool {
	info, err := os.Stat(f.dir)
	return err == nil && info.IsDir()
}

// Close stops the fsnotify loop, if one was started, and closes all watch channels.
func (f *FileStorage) Close() error {
	f.mu.Lock()
	w := f.watcher
	done := f.done
	f.watcher = nil
	f.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}

// Watch reports changes to the file backing key until ctx is done or the storage is
// closed.
func (f *FileStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, errors.Wrap(err, "create fsnotify watcher")
		}
		if err := w.Add(f.dir); err != nil {
			w.Close()
			return nil, errors.Wrapf(err, "watch %s", f.dir)
		}
		f.watcher = w
		f.done = make(chan struct{})
		go f.run(w, f.done)
	}

	name := f.path(key)
	ch := make(chan struct{}, 1)
	f.watchers[name] = append(f.watchers[name], ch)
	done := f.done

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.removeWatcher(name, ch) {
			close(ch)
		}
	}()
	return ch, nil
}

// removeWatcher must be called with mu held.
func (f *FileStorage) removeWatcher(name string, ch chan struct{}) bool {
	list := f.watchers[name]
	for i, c := range list {
		if c == ch {
			f.watchers[name] = append(list[:i], list[i+1:]...)
			if len(f.watchers[name]) == 0 {
				delete(f.watchers, name)
			}
			return true
		}
	}
	return false
}

func (f *FileStorage) run(w *fsnotify.Watcher, done chan struct{}) {
	defer func() {
		f.mu.Lock()
		for name, list := range f.watchers {
			for _, ch := range list {
				close(ch)
			}
			delete(f.watchers, name)
		}
		f.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			f.mu.Lock()
			for _, ch := range f.watchers[filepath.Clean(event.Name)] {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			f.mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.log.WithError(err).Warn("FileStorage: watcher error")
		}
	}
}
