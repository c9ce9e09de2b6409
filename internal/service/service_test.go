package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"assetserve/internal/engine"
)

func TestEventBusPublish(t *testing.T) {
	bus := NewEventBus()

	t.Run("delivers to every subscriber", func(t *testing.T) {
		a := make(chan Event, 1)
		b := make(chan Event, 1)
		bus.Subscribe(a)
		bus.Subscribe(b)

		bus.Publish(Event{Type: EventReload})

		for _, ch := range []chan Event{a, b} {
			select {
			case ev := <-ch:
				if ev.Type != EventReload {
					t.Errorf("expected %s, got %s", EventReload, ev.Type)
				}
			default:
				t.Error("expected an event")
			}
		}
	})

	t.Run("slow subscriber does not block", func(t *testing.T) {
		slow := make(chan Event)
		bus.Subscribe(slow)
		bus.Publish(Event{Type: EventReload})
	})

	t.Run("unsubscribed channel gets nothing", func(t *testing.T) {
		ch := make(chan Event, 1)
		bus.Subscribe(ch)
		bus.Unsubscribe(ch)
		bus.Publish(Event{Type: EventReload})
		select {
		case ev := <-ch:
			t.Errorf("unexpected event %s", ev.Type)
		default:
		}
	})
}

// fakeSource treats every path under dir as inside the source
type fakeSource struct {
	dir     string
	changed []string
}

func (f *fakeSource) Changed(_ *engine.Engine, osPath string) (string, bool) {
	rel, err := filepath.Rel(f.dir, osPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	f.changed = append(f.changed, rel)
	return filepath.ToSlash(rel), true
}

func TestChangeServiceFileChanged(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "index.html")
	if err := os.WriteFile(existing, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{dir: dir}
	bus := NewEventBus()
	events := make(chan Event, 4)
	bus.Subscribe(events)

	e := engine.New()
	defer e.Close()
	svc := NewChangeService(source, e, bus, nil)

	t.Run("changed file", func(t *testing.T) {
		svc.FileChanged(existing)
		ev := <-events
		if ev.Type != EventAssetChanged {
			t.Errorf("expected %s, got %s", EventAssetChanged, ev.Type)
		}
		if p := ev.Payload.(AssetPayload).Path; p != "index.html" {
			t.Errorf("expected index.html, got %s", p)
		}
	})

	t.Run("removed file", func(t *testing.T) {
		svc.FileChanged(filepath.Join(dir, "gone.js"))
		ev := <-events
		if ev.Type != EventAssetRemoved {
			t.Errorf("expected %s, got %s", EventAssetRemoved, ev.Type)
		}
	})

	t.Run("outside the source", func(t *testing.T) {
		svc.FileChanged(filepath.Join(filepath.Dir(dir), "elsewhere.txt"))
		select {
		case ev := <-events:
			t.Errorf("unexpected event %+v", ev)
		default:
		}
	})

	if len(source.changed) != 2 {
		t.Errorf("expected 2 invalidations, got %d", len(source.changed))
	}
}
