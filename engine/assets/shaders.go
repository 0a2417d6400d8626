package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// ShaderCatalog hands out compiled SPIR-V bytecode by logical name. A
// shader named "gbuffer.vert" is backed by the file <dir>/gbuffer.vert.spv.
// Loaded bytecode is cached until the backing file changes on disk.
type ShaderCatalog struct {
	dir string

	mutex sync.RWMutex
	cache map[string][]byte

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewShaderCatalog(dir string) *ShaderCatalog {
	return &ShaderCatalog{
		dir:   dir,
		cache: make(map[string][]byte),
	}
}

func (sc *ShaderCatalog) Dir() string {
	return sc.dir
}

// Load returns the SPIR-V bytecode for the named shader, reading it from
// disk on first use. Bytecode must be non-empty and a whole number of
// 32-bit words.
func (sc *ShaderCatalog) Load(name string) ([]byte, error) {
	sc.mutex.RLock()
	data, cached := sc.cache[name]
	sc.mutex.RUnlock()
	if cached {
		return data, nil
	}

	path := filepath.Join(sc.dir, name+".spv")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (looked in %s)", core.ErrShaderNotFound, name, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read shader %s: %w", path, err)
	}

	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes, expected a non-empty multiple of 4", core.ErrShaderMalformed, name, len(data))
	}

	sc.mutex.Lock()
	sc.cache[name] = data
	sc.mutex.Unlock()

	return data, nil
}

// Watch starts watching the catalog directory so that recompiled shaders
// are re-read on next Load instead of served stale from the cache.
func (sc *ShaderCatalog) Watch() error {
	if sc.isClosed {
		return errors.New("shader catalog already closed")
	}
	if sc.fsnotify != nil {
		return nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatch.Add(sc.dir); err != nil {
		fsWatch.Close()
		return err
	}

	sc.fsnotify = fsWatch
	sc.done = make(chan struct{})
	go sc.start()

	return nil
}

// Close stops the directory watcher. The catalog itself stays usable.
func (sc *ShaderCatalog) Close() error {
	if sc.isClosed {
		return nil
	}
	sc.isClosed = true
	if sc.done != nil {
		close(sc.done)
	}
	if sc.fsnotify != nil {
		return sc.fsnotify.Close()
	}
	return nil
}

func (sc *ShaderCatalog) start() {
	for {
		select {

		case e, ok := <-sc.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Ext(e.Name) != ".spv" {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				name := strings.TrimSuffix(filepath.Base(e.Name), ".spv")
				sc.evict(name)
			}

		case e, ok := <-sc.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-sc.done:
			return
		}
	}
}

// Drop the cached bytecode so the next Load re-reads the file.
func (sc *ShaderCatalog) evict(name string) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if _, ok := sc.cache[name]; ok {
		delete(sc.cache, name)
		core.LogDebug("shader %s changed on disk, evicted from catalog", name)
	}
}
