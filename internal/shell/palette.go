package shell

import (
	"cmp"
	"slices"
	"sync"

	"github.com/soar/gamepadview/internal/binding"
)

type entry[T any] struct {
	seq  uint64
	item T
}

// itemList is an ordered collection of registered items.
type itemList[T any] struct {
	mu    sync.Mutex
	seq   uint64
	items []entry[T]
}

func (l *itemList[T]) add(item T) binding.Disposable {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.items = append(l.items, entry[T]{seq: seq, item: item})
	l.mu.Unlock()
	return once(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.items = slices.DeleteFunc(l.items, func(e entry[T]) bool { return e.seq == seq })
	})
}

func (l *itemList[T]) list() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	for i, e := range l.items {
		out[i] = e.item
	}
	return out
}

// Palette lists commands by category, in registration order.
type Palette struct {
	items itemList[binding.PaletteItem]
}

func NewPalette() *Palette {
	return &Palette{}
}

func (p *Palette) AddItem(item binding.PaletteItem) binding.Disposable {
	return p.items.add(item)
}

func (p *Palette) List() []binding.PaletteItem {
	return p.items.list()
}

// Launcher lists commands by rank.
type Launcher struct {
	items itemList[binding.LauncherItem]
}

func NewLauncher() *Launcher {
	return &Launcher{}
}

func (l *Launcher) Add(item binding.LauncherItem) binding.Disposable {
	return l.items.add(item)
}

// List returns the items ordered by rank, then command id.
func (l *Launcher) List() []binding.LauncherItem {
	out := l.items.list()
	slices.SortStableFunc(out, func(a, b binding.LauncherItem) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.Command, b.Command)
	})
	return out
}
