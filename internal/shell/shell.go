package shell

import (
	"cmp"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Widget is something shown in a tab.
type Widget interface {
	ID() string
	Title() string
	Close()
}

// TabInfo describes an open tab.
type TabInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Shell keeps track of the open tabs.
type Shell struct {
	log  *zap.Logger
	tabs *xsync.MapOf[string, Widget]
}

func New(log *zap.Logger) *Shell {
	return &Shell{
		log:  log,
		tabs: xsync.NewMapOf[string, Widget](),
	}
}

// Add opens a tab for w.
func (s *Shell) Add(w Widget) {
	s.tabs.Store(w.ID(), w)
	s.log.Info("tab opened", zap.String("tab", w.ID()))
}

// Close closes the tab with the given id. It reports whether it was open.
func (s *Shell) Close(id string) bool {
	w, ok := s.tabs.LoadAndDelete(id)
	if !ok {
		return false
	}
	w.Close()
	s.log.Info("tab closed", zap.String("tab", id))
	return true
}

// CloseAll closes every open tab.
func (s *Shell) CloseAll() {
	s.tabs.Range(func(id string, _ Widget) bool {
		s.Close(id)
		return true
	})
}

// List returns the open tabs sorted by id.
func (s *Shell) List() []TabInfo {
	var out []TabInfo
	s.tabs.Range(func(id string, w Widget) bool {
		out = append(out, TabInfo{ID: id, Title: w.Title()})
		return true
	})
	slices.SortFunc(out, func(a, b TabInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
