package widget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
)

type recordingListener struct {
	events []*CustomEvent
}

func (r *recordingListener) HandleEvent(ev *CustomEvent) {
	r.events = append(r.events, ev)
}

func TestElement_AddDispatchRemove(t *testing.T) {
	el := NewElement(RootTag)
	l := &recordingListener{}

	el.AddEventListener(ActionEventName, l)
	require.Equal(t, 1, el.ListenerCount(ActionEventName))

	n := el.DispatchEvent(&CustomEvent{Name: ActionEventName, Detail: actions.NewCopyToClipboard("a")})
	require.Equal(t, 1, n)
	require.Len(t, l.events, 1)

	// other event names are not delivered
	require.Equal(t, 0, el.DispatchEvent(&CustomEvent{Name: "chatkit.log"}))

	el.RemoveEventListener(ActionEventName, l)
	require.Equal(t, 0, el.ListenerCount(ActionEventName))
	require.Equal(t, 0, el.DispatchEvent(&CustomEvent{Name: ActionEventName}))
	require.Len(t, l.events, 1)
}

func TestElement_RemoveOnlyMatchingListener(t *testing.T) {
	el := NewElement(RootTag)
	a := &recordingListener{}
	b := &recordingListener{}
	el.AddEventListener(ActionEventName, a)
	el.AddEventListener(ActionEventName, b)

	el.RemoveEventListener(ActionEventName, a)
	el.DispatchEvent(&CustomEvent{Name: ActionEventName})
	require.Empty(t, a.events)
	require.Len(t, b.events, 1)
}

func TestElement_FuncListenersAreNotRemovable(t *testing.T) {
	el := NewElement(RootTag)
	calls := 0
	f := EventListenerFunc(func(*CustomEvent) { calls++ })
	el.AddEventListener(ActionEventName, f)
	el.RemoveEventListener(ActionEventName, f)

	el.DispatchEvent(&CustomEvent{Name: ActionEventName})
	require.Equal(t, 1, calls)
}

func TestElement_RemoveDuringDispatchFinishesCurrentRound(t *testing.T) {
	el := NewElement(RootTag)
	second := &recordingListener{}
	var first EventListenerFunc = func(*CustomEvent) {
		el.RemoveEventListener(ActionEventName, second)
	}
	el.AddEventListener(ActionEventName, first)
	el.AddEventListener(ActionEventName, second)

	require.Equal(t, 2, el.DispatchEvent(&CustomEvent{Name: ActionEventName}))
	require.Len(t, second.events, 1)
	require.Equal(t, 1, el.DispatchEvent(&CustomEvent{Name: ActionEventName}))
	require.Len(t, second.events, 1)
}

func TestElement_NilSafe(t *testing.T) {
	var el *Element
	el.AddEventListener(ActionEventName, &recordingListener{})
	el.RemoveEventListener(ActionEventName, &recordingListener{})
	require.Equal(t, 0, el.DispatchEvent(&CustomEvent{Name: ActionEventName}))
	require.Equal(t, "", el.Tag())
}

func TestWidget_MountUnmount(t *testing.T) {
	w := New(DefaultOptions())
	require.Nil(t, w.Root())

	root := w.Mount()
	require.NotNil(t, root)
	require.Equal(t, RootTag, root.Tag())
	require.Same(t, root, w.Mount())

	w.Unmount()
	require.Nil(t, w.Root())
}

func TestDefaultOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())
	require.Equal(t, "/api/chatkit", opts.API.URL)
	require.Len(t, opts.StartScreen.Prompts, 4)
}

func TestOptionsValidateRejects(t *testing.T) {
	cases := map[string]func(*Options){
		"empty url":     func(o *Options) { o.API.URL = " " },
		"color scheme":  func(o *Options) { o.Theme.ColorScheme = "sepia" },
		"radius":        func(o *Options) { o.Theme.Radius = "huge" },
		"density":       func(o *Options) { o.Theme.Density = "airy" },
		"accent color":  func(o *Options) { o.Theme.Color.Accent.Primary = "indigo" },
		"accent level":  func(o *Options) { o.Theme.Color.Accent.Level = 7 },
		"prompt fields": func(o *Options) { o.StartScreen.Prompts = []Prompt{{Label: "x"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := DefaultOptions()
			mutate(&o)
			require.Error(t, o.Validate())
		})
	}
}

func TestLoadOptions(t *testing.T) {
	opts, err := LoadOptions("")
	require.NoError(t, err)
	require.Equal(t, DefaultOptions(), opts)

	dir := t.TempDir()
	path := filepath.Join(dir, "widget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  domainKey: prod
theme:
  colorScheme: dark
startScreen:
  prompts:
    - label: Summarize
      prompt: Summarize this thread
`), 0o600))

	opts, err = LoadOptions(path)
	require.NoError(t, err)
	require.Equal(t, "/api/chatkit", opts.API.URL)
	require.Equal(t, "prod", opts.API.DomainKey)
	require.Equal(t, "dark", opts.Theme.ColorScheme)
	require.Equal(t, "round", opts.Theme.Radius)
	require.Len(t, opts.StartScreen.Prompts, 1)
	require.Equal(t, "Type your message...", opts.Composer.Placeholder)

	require.NoError(t, os.WriteFile(path, []byte("theme:\n  density: airy\n"), 0o600))
	_, err = LoadOptions(path)
	require.Error(t, err)

	_, err = LoadOptions(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
