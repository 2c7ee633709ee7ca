package binding

// Disposable is a handle to something registered with a collaborator.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

func (f DisposeFunc) Dispose() { f() }

// Command is an executable action offered to the user.
type Command struct {
	ID      string
	Label   string
	Caption string
	Execute func() error
}

type PaletteItem struct {
	Command  string
	Category string
}

type LauncherItem struct {
	Command  string
	Rank     int
	Category string
}

type CommandRegistry interface {
	AddCommand(cmd Command) (Disposable, error)
}

type Palette interface {
	AddItem(item PaletteItem) Disposable
}

type Launcher interface {
	Add(item LauncherItem) Disposable
}

// Opener opens a display for the device in the given 0-based slot.
type Opener interface {
	Open(slot int) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(slot int) error

func (f OpenerFunc) Open(slot int) error { return f(slot) }
