package shader

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/fsnotify/fsnotify"
)

// Change describes an edited shader override file. Override files are named
// <program>.vert.wgsl or <program>.frag.wgsl.
type Change struct {
	Path    string
	Program string
	Stage   ShaderType
}

// Watcher reports edits to shader override files in a directory so programs can be recompiled
// and swapped while the application runs.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan Change
	done    chan struct{}
	once    sync.Once
}

// NewWatcher starts watching dir for shader override edits.
//
// Parameters:
//   - dir: the directory holding override files
//
// Returns:
//   - *Watcher: the running watcher; call Close to stop it
//   - error: an error if the directory cannot be watched
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		watcher: fw,
		changes: make(chan Change, 16),
		done:    make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

// Changes delivers override edits. Events are dropped when the buffer is full, since only the
// latest contents of a file matter.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			change, ok := ParseOverrideName(event.Name)
			if !ok {
				continue
			}
			select {
			case w.changes <- change:
			default:
				common.Logger().Debug("shader watcher dropped change", "path", event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("shader watcher error", "error", err)
		}
	}
}

// ParseOverrideName maps an override file path to the program and stage it replaces.
//
// Parameters:
//   - path: the file path, e.g. "shaders/lighting_shader.frag.wgsl"
//
// Returns:
//   - Change: the program and stage
//   - bool: false if the name does not follow the override convention
func ParseOverrideName(path string) (Change, bool) {
	base, ok := strings.CutSuffix(filepath.Base(path), ".wgsl")
	if !ok {
		return Change{}, false
	}
	var stage ShaderType
	var program string
	switch {
	case strings.HasSuffix(base, ".vert"):
		stage, program = ShaderTypeVertex, strings.TrimSuffix(base, ".vert")
	case strings.HasSuffix(base, ".frag"):
		stage, program = ShaderTypeFragment, strings.TrimSuffix(base, ".frag")
	default:
		return Change{}, false
	}
	if program == "" {
		return Change{}, false
	}
	return Change{Path: path, Program: program, Stage: stage}, true
}
