// SPDX-License-Identifier: EPL-2.0

package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"
	"sync"
)

// NewProcessorSymbol is the symbol a native module exports. Its type must
// be func() (plugin.Processor, error).
const NewProcessorSymbol = "NewProcessor"

// NativeLoader opens Go plugin modules (.so) by name from a list of
// directories. Opened modules stay loaded for the life of the process.
type NativeLoader struct {
	dirs []string

	mtx    sync.Mutex
	opened map[string]Factory
}

// NewNativeLoader searches dirs in order.
func NewNativeLoader(dirs ...string) *NativeLoader {
	return &NativeLoader{
		dirs:   dirs,
		opened: make(map[string]Factory),
	}
}

// Lookup returns the constructor exported by the module for name. name is
// either a path to a module or a base name resolved as <dir>/<name>.so.
func (n *NativeLoader) Lookup(name string) (Factory, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	if f, ok := n.opened[name]; ok {
		return f, nil
	}

	path, err := n.find(name)
	if err != nil {
		return nil, err
	}

	mod, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	sym, err := mod.Lookup(NewProcessorSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadSymbol, path, err)
	}

	var f Factory
	switch ctor := sym.(type) {
	case func() (Processor, error):
		f = ctor
	case *Factory:
		f = *ctor
	default:
		return nil, fmt.Errorf("%w: %s exports %T", ErrBadSymbol, path, sym)
	}

	n.opened[name] = f
	return f, nil
}

func (n *NativeLoader) find(name string) (string, error) {
	if filepath.Ext(name) == ".so" || filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return name, nil
	}

	for _, dir := range n.dirs {
		p := filepath.Join(dir, name+".so")
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
	}

	return "", fmt.Errorf("%w: %s in %v", ErrNotFound, name, n.dirs)
}
