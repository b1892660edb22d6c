package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
	"github.com/go-go-golems/chatkit-host/pkg/clipboard"
	"github.com/go-go-golems/chatkit-host/pkg/widget"
)

type failingCopier struct{}

func (failingCopier) Copy(context.Context, string) error {
	return errors.New("clipboard locked")
}

type blockingCopier struct {
	release chan struct{}
	mem     *clipboard.Memory
}

func (c *blockingCopier) Copy(ctx context.Context, text string) error {
	<-c.release
	return c.mem.Copy(ctx, text)
}

type outcomes struct {
	mu   sync.Mutex
	list []Outcome
}

func (o *outcomes) add(out Outcome) {
	o.mu.Lock()
	o.list = append(o.list, out)
	o.mu.Unlock()
}

func (o *outcomes) all() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.list...)
}

func mounted() (*widget.Widget, *widget.Element) {
	w := widget.New(widget.DefaultOptions())
	return w, w.Mount()
}

func dispatch(el *widget.Element, d *actions.Detail) int {
	return el.DispatchEvent(&widget.CustomEvent{Name: widget.ActionEventName, Detail: d})
}

func TestBridge_CopyToClipboard(t *testing.T) {
	w, root := mounted()
	mem := clipboard.NewMemory()
	b := New(w, mem)
	require.NoError(t, b.Start())
	require.Equal(t, StateAttached, b.State())

	require.Equal(t, 1, dispatch(root, actions.NewCopyToClipboard("hello")))
	b.Wait()
	require.Equal(t, "hello", mem.Text())
}

func TestBridge_UnknownActionIsNoop(t *testing.T) {
	w, root := mounted()
	mem := clipboard.NewMemory()
	got := &outcomes{}
	b := New(w, mem, WithObserver(got.add))
	require.NoError(t, b.Start())

	dispatch(root, &actions.Detail{Type: "unknown_action", Payload: map[string]any{"text": "x"}})
	dispatch(root, nil)
	dispatch(root, &actions.Detail{Type: actions.TypeCopyToClipboard})
	b.Wait()

	require.Empty(t, mem.History())
	for _, o := range got.all() {
		require.Equal(t, OutcomeIgnored, o.Outcome)
	}
	require.Len(t, got.all(), 3)
}

func TestBridge_StopDetaches(t *testing.T) {
	w, root := mounted()
	mem := clipboard.NewMemory()
	b := New(w, mem)
	require.NoError(t, b.Start())
	b.Stop()
	require.Equal(t, StateUnattached, b.State())

	require.Equal(t, 0, dispatch(root, actions.NewCopyToClipboard("late")))
	b.Wait()
	require.Empty(t, mem.History())

	// second stop is a no-op
	b.Stop()
}

func TestBridge_StartTwiceDoesNotDoubleHandle(t *testing.T) {
	w, root := mounted()
	mem := clipboard.NewMemory()
	b := New(w, mem)
	require.NoError(t, b.Start())
	require.ErrorIs(t, b.Start(), ErrAlreadyStarted)
	require.Equal(t, 1, root.ListenerCount(widget.ActionEventName))

	dispatch(root, actions.NewCopyToClipboard("once"))
	b.Wait()
	require.Equal(t, []string{"once"}, mem.History())
}

func TestBridge_MissingRootIsTolerated(t *testing.T) {
	w := widget.New(widget.DefaultOptions())
	b := New(w, clipboard.NewMemory())
	require.NoError(t, b.Start())
	require.Equal(t, StateUnattached, b.State())
	b.Stop()

	// restartable once the widget mounts
	root := w.Mount()
	require.NoError(t, b.Start())
	require.Equal(t, 1, root.ListenerCount(widget.ActionEventName))
	b.Stop()
	require.Equal(t, 0, root.ListenerCount(widget.ActionEventName))
}

func TestBridge_StopDetachesFromOriginalElementAfterUnmount(t *testing.T) {
	w, root := mounted()
	b := New(w, clipboard.NewMemory())
	require.NoError(t, b.Start())

	w.Unmount()
	b.Stop()
	require.Equal(t, 0, root.ListenerCount(widget.ActionEventName))
}

func TestBridge_CopyFailureIsReportedNotRaised(t *testing.T) {
	w, root := mounted()
	got := &outcomes{}
	b := New(w, failingCopier{}, WithObserver(got.add))
	require.NoError(t, b.Start())

	require.NotPanics(t, func() {
		dispatch(root, actions.NewCopyToClipboard("x"))
	})
	b.Wait()

	all := got.all()
	require.Len(t, all, 1)
	require.Equal(t, OutcomeCopyFailed, all[0].Outcome)
	require.EqualError(t, all[0].Err, "clipboard locked")

	// later events are still handled
	dispatch(root, actions.NewCopyToClipboard("y"))
	b.Wait()
	require.Len(t, got.all(), 2)
}

func TestBridge_CopyDoesNotBlockDispatch(t *testing.T) {
	w, root := mounted()
	c := &blockingCopier{release: make(chan struct{}), mem: clipboard.NewMemory()}
	b := New(w, c)
	require.NoError(t, b.Start())

	dispatch(root, actions.NewCopyToClipboard("first"))
	dispatch(root, actions.NewCopyToClipboard("second"))
	require.Empty(t, c.mem.History())

	// in-flight copies complete even after Stop
	b.Stop()
	close(c.release)
	b.Wait()
	require.Equal(t, []string{"first", "second"}, c.mem.History())
}

type slowFirstCopier struct {
	mem *clipboard.Memory
}

func (c *slowFirstCopier) Copy(ctx context.Context, text string) error {
	if text == "first" {
		time.Sleep(50 * time.Millisecond)
	}
	return c.mem.Copy(ctx, text)
}

func TestBridge_CopiesLandInDispatchOrder(t *testing.T) {
	w, root := mounted()
	c := &slowFirstCopier{mem: clipboard.NewMemory()}
	b := New(w, c)
	require.NoError(t, b.Start())

	dispatch(root, actions.NewCopyToClipboard("first"))
	dispatch(root, actions.NewCopyToClipboard("second"))
	b.Wait()

	require.Equal(t, []string{"first", "second"}, c.mem.History())
	require.Equal(t, "second", c.mem.Text())
}

func TestBridge_WaitWhileDispatching(t *testing.T) {
	w, root := mounted()
	mem := clipboard.NewMemory()
	b := New(w, mem)
	require.NoError(t, b.Start())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				dispatch(root, actions.NewCopyToClipboard("x"))
				b.Wait()
			}
		}()
	}
	wg.Wait()
	b.Wait()
	require.Len(t, mem.History(), 160)
}

func TestBridge_NilCopier(t *testing.T) {
	w, root := mounted()
	got := &outcomes{}
	b := New(w, nil, WithObserver(got.add))
	require.NoError(t, b.Start())

	dispatch(root, actions.NewCopyToClipboard("x"))
	b.Wait()
	require.Equal(t, OutcomeCopyFailed, got.all()[0].Outcome)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "attached", StateAttached.String())
	require.Equal(t, "unattached", StateUnattached.String())
}
