package tui

import "testing"

func TestComputeLayout_NoLogs(t *testing.T) {
	l := ComputeLayout(100, 40, false)

	if l.Header.Y != 0 || l.Header.Height != headerHeight {
		t.Errorf("header = %+v", l.Header)
	}
	if l.Content.Y != headerHeight {
		t.Errorf("content.Y = %d, want %d", l.Content.Y, headerHeight)
	}
	wantContent := 40 - headerHeight - statusBarHeight - marginHeight
	if l.Content.Height != wantContent {
		t.Errorf("content height = %d, want %d", l.Content.Height, wantContent)
	}
	if l.Logs.Height != 0 || l.Separator.Height != 0 {
		t.Errorf("logs should be empty, got %+v / %+v", l.Logs, l.Separator)
	}
	if l.StatusBar.Y != l.Content.Y+l.Content.Height {
		t.Errorf("status bar Y = %d", l.StatusBar.Y)
	}
}

func TestComputeLayout_WithLogs(t *testing.T) {
	l := ComputeLayout(100, 40, true)

	available := 40 - headerHeight - statusBarHeight - marginHeight
	if got := l.Content.Height + l.Separator.Height + l.Logs.Height; got != available {
		t.Errorf("content+separator+logs = %d, want %d", got, available)
	}
	if l.Logs.Height <= 0 || l.Content.Height <= l.Logs.Height {
		t.Errorf("content %d should be larger than logs %d", l.Content.Height, l.Logs.Height)
	}
	if l.Separator.Y != l.Content.Y+l.Content.Height {
		t.Errorf("separator Y = %d", l.Separator.Y)
	}
	if l.StatusBar.Y != l.Logs.Y+l.Logs.Height {
		t.Errorf("status bar Y = %d", l.StatusBar.Y)
	}
}

func TestComputeLayout_TinyTerminal(t *testing.T) {
	l := ComputeLayout(20, 3, true)
	if l.Content.Height < 1 || l.Logs.Height < 1 {
		t.Errorf("regions must stay usable: %+v", l)
	}
	if l.ContentListHeight() < 1 {
		t.Errorf("ContentListHeight = %d", l.ContentListHeight())
	}
}
