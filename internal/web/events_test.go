package web

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"crafthub/internal/discovery"
	"crafthub/internal/editor"
	"crafthub/internal/logging"
	"crafthub/internal/project"
)

type stubCommands struct{ editors []editor.Info }

func (stubCommands) StartLoginFlow(string) error { return nil }

func (stubCommands) CreateNewProject(_ context.Context, name, _, _ string, onProgress project.ProgressFunc) (project.Result, error) {
	onProgress(project.ProgressStep{Step: project.StepClone, Status: project.StatusStarted, Message: "Cloning"})
	onProgress(project.ProgressStep{Step: project.StepManifest, Status: project.StatusCompleted, Message: "done"})
	return project.Result{Name: name, Path: "/tmp/" + name, Message: "ok"}, nil
}

func (stubCommands) ListProjects() []discovery.Project { return []discovery.Project{} }

func (s stubCommands) DetectEditors() ([]editor.Info, error)  { return s.editors, nil }
func (stubCommands) OpenProjectInEditor(string, string) error { return nil }

func TestEventBroker_PublishSubscribe(t *testing.T) {
	b := newEventBroker()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(Event{Type: EventEditorsChanged})

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventEditorsChanged {
				t.Errorf("subscriber %d: type = %q", i, ev.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: expected event", i)
		}
	}
}

func TestEventBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := newEventBroker()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(Event{Type: EventProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestEventBroker_UnsubscribeAndClose(t *testing.T) {
	b := newEventBroker()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Unsubscribe(ch) // second call is a no-op

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}

	ch2 := b.Subscribe()
	b.Close()
	if _, ok := <-ch2; ok {
		t.Fatal("channel should be closed after Close")
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("Subscribe after Close should return a closed channel")
	}
}

func TestHandleEvents_StreamsProgressAndEditors(t *testing.T) {
	lm := logging.NewTestLogManager(100)
	t.Cleanup(func() { _ = lm.Close() })

	cmds := stubCommands{editors: []editor.Info{{DisplayName: "Zed", Slug: "zed", ExecutablePath: "/usr/bin/zed"}}}
	s := New(Config{Bind: "127.0.0.1", Port: 0}, cmds, nil, lm)
	ln, err := s.Listen()
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/api/events", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.CloseNow() }()

	var ev Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil || ev.Type != EventConnected {
		t.Fatalf("first event = %+v, %v; want connected", ev, err)
	}

	resp, err := http.Post("http://"+s.Addr()+"/api/projects", "application/json",
		strings.NewReader(`{"name":"MyGame","path":"/tmp","template_url":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	var steps []string
	for len(steps) < 2 {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if ev.Type != EventProgress || ev.Project != "MyGame" || ev.Step == nil {
			t.Fatalf("unexpected event %+v", ev)
		}
		steps = append(steps, ev.Step.Step+":"+ev.Step.Status)
	}
	if strings.Join(steps, ",") != "clone:started,manifest:completed" {
		t.Errorf("steps = %v", steps)
	}

	s.PublishEditors()
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventEditorsChanged || len(ev.Editors) != 1 || ev.Editors[0].Slug != "zed" {
		t.Errorf("editors event = %+v", ev)
	}
}
