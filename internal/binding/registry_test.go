package binding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// journal records registrations and disposals in order across collaborators.
type journal struct {
	events   []string
	commands map[string]Command
	failOn   string
}

func newJournal() *journal {
	return &journal{commands: make(map[string]Command)}
}

func (j *journal) handle(kind, id string, drop func()) Disposable {
	j.events = append(j.events, "add "+kind+" "+id)
	return DisposeFunc(func() {
		j.events = append(j.events, "dispose "+kind+" "+id)
		if drop != nil {
			drop()
		}
	})
}

func (j *journal) AddCommand(cmd Command) (Disposable, error) {
	if cmd.ID == j.failOn {
		return nil, errors.New("registry full")
	}
	if _, ok := j.commands[cmd.ID]; ok {
		return nil, fmt.Errorf("command %s already registered", cmd.ID)
	}
	j.commands[cmd.ID] = cmd
	return j.handle("command", cmd.ID, func() { delete(j.commands, cmd.ID) }), nil
}

func (j *journal) AddItem(item PaletteItem) Disposable {
	return j.handle("palette", item.Command, nil)
}

type launcher struct {
	*journal
	items []LauncherItem
}

func (l *launcher) Add(item LauncherItem) Disposable {
	l.items = append(l.items, item)
	return l.handle("launcher", item.Command, nil)
}

type opener struct {
	opened []int
}

func (o *opener) Open(slot int) error {
	o.opened = append(o.opened, slot)
	return nil
}

func newRegistry(t *testing.T, j *journal, l Launcher, o Opener) *Registry {
	return NewRegistry(zaptest.NewLogger(t), Collaborators{
		Commands: j,
		Palette:  j,
		Launcher: l,
		Opener:   o,
	})
}

func TestReloadInstallsCommandPerBinding(t *testing.T) {
	j := newJournal()
	l := &launcher{journal: j}
	o := &opener{}
	r := newRegistry(t, j, l, o)

	require.NoError(t, r.Reload([]Binding{{GamepadIndex: 1, Alias: "Left"}}))

	assert.Equal(t, []string{"gamepadview:open-tab:0"}, r.Installed())
	assert.Equal(t, []string{
		"add command gamepadview:open-tab:0",
		"add palette gamepadview:open-tab:0",
		"add launcher gamepadview:open-tab:0",
	}, j.events)

	cmd := j.commands["gamepadview:open-tab:0"]
	assert.Equal(t, "Left", cmd.Label)
	assert.Equal(t, "Open Left Tab", cmd.Caption)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, []int{0}, o.opened)

	require.Len(t, l.items, 1)
	assert.Equal(t, 10, l.items[0].Rank)
	assert.Equal(t, LauncherCategory, l.items[0].Category)
}

func TestReloadWithoutLauncher(t *testing.T) {
	j := newJournal()
	r := newRegistry(t, j, nil, &opener{})

	require.NoError(t, r.Reload([]Binding{{GamepadIndex: 2, Alias: "B"}, {GamepadIndex: 1, Alias: "A"}}))
	assert.Equal(t, []string{"gamepadview:open-tab:1", "gamepadview:open-tab:0"}, r.Installed())
	for _, e := range j.events {
		assert.NotContains(t, e, "launcher")
	}
}

func TestReloadDisposesBeforeInstalling(t *testing.T) {
	j := newJournal()
	r := newRegistry(t, j, &launcher{journal: j}, &opener{})

	require.NoError(t, r.Reload([]Binding{{GamepadIndex: 1, Alias: "A"}, {GamepadIndex: 3, Alias: "C"}}))
	first := len(j.events)
	require.NoError(t, r.Reload([]Binding{{GamepadIndex: 2, Alias: "B"}}))

	second := j.events[first:]
	lastDispose, firstAdd := -1, len(second)
	for i, e := range second {
		switch e[:3] {
		case "dis":
			lastDispose = i
		case "add":
			firstAdd = min(firstAdd, i)
		}
	}
	assert.Equal(t, 6, lastDispose+1, "every handle from the first reload is disposed")
	assert.Less(t, lastDispose, firstAdd)
	assert.Equal(t, []string{"gamepadview:open-tab:1"}, r.Installed())
	assert.Len(t, j.commands, 1)
}

func TestReloadRejectsDuplicateIndex(t *testing.T) {
	j := newJournal()
	o := &opener{}
	r := newRegistry(t, j, nil, o)
	require.NoError(t, r.Reload([]Binding{{GamepadIndex: 1, Alias: "A"}}))
	before := append([]string(nil), j.events...)

	err := r.Reload([]Binding{{GamepadIndex: 2, Alias: "X"}, {GamepadIndex: 2, Alias: "Y"}})
	require.ErrorIs(t, err, ErrDuplicateIndex)
	assert.True(t, IsConfigurationError(err))

	// nothing was disposed or added and the old command still works
	assert.Equal(t, before, j.events)
	assert.Equal(t, []string{"gamepadview:open-tab:0"}, r.Installed())
	require.NoError(t, j.commands["gamepadview:open-tab:0"].Execute())
	assert.Equal(t, []int{0}, o.opened)
}

func TestReloadRejectsInvalidIndex(t *testing.T) {
	j := newJournal()
	r := newRegistry(t, j, nil, &opener{})

	err := r.Reload([]Binding{{GamepadIndex: 0, Alias: "zero"}})
	require.ErrorIs(t, err, ErrInvalidIndex)
	assert.True(t, IsConfigurationError(err))
	assert.Empty(t, j.events)
}

func TestReloadIsIdempotent(t *testing.T) {
	j := newJournal()
	r := newRegistry(t, j, nil, &opener{})
	bindings := []Binding{{GamepadIndex: 1, Alias: "A"}, {GamepadIndex: 4, Alias: "D"}}

	require.NoError(t, r.Reload(bindings))
	ids := r.Installed()
	require.NoError(t, r.Reload(bindings))
	assert.Equal(t, ids, r.Installed())
	assert.Len(t, j.commands, 2)
}

func TestReloadEmptyListClearsEverything(t *testing.T) {
	j := newJournal()
	r := newRegistry(t, j, nil, &opener{})
	require.NoError(t, r.Reload([]Binding{{GamepadIndex: 1, Alias: "A"}}))

	require.NoError(t, r.Reload(nil))
	assert.Empty(t, r.Installed())
	assert.Empty(t, j.commands)
}

func TestReloadRegistrationFailure(t *testing.T) {
	j := newJournal()
	j.failOn = "gamepadview:open-tab:1"
	r := newRegistry(t, j, nil, &opener{})

	err := r.Reload([]Binding{{GamepadIndex: 1, Alias: "A"}, {GamepadIndex: 2, Alias: "B"}})
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
	assert.Empty(t, r.Installed())
	assert.Empty(t, j.commands)
}

func TestClose(t *testing.T) {
	j := newJournal()
	r := newRegistry(t, j, nil, &opener{})
	require.NoError(t, r.Reload([]Binding{{GamepadIndex: 1, Alias: "A"}}))
	r.Close()
	assert.Empty(t, j.commands)
	assert.Empty(t, r.Installed())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate([]Binding{{GamepadIndex: 1}, {GamepadIndex: 2}}))

	err := Validate([]Binding{{GamepadIndex: -1, Alias: "neg"}, {GamepadIndex: -1, Alias: "again"}})
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.ErrorIs(t, err, ErrDuplicateIndex)
}

func TestBindingSlot(t *testing.T) {
	assert.Equal(t, 0, Binding{GamepadIndex: 1}.Slot())
	assert.Equal(t, "gamepadview:open-tab:3", CommandID(Binding{GamepadIndex: 4}.Slot()))
}
