package denylist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testList = `# comment
! adblock comment
||ads.example.com^
||Tracker.Example.NET^

0.0.0.0 hosts.example.org
plain.example.com.
@@||allowed.example.com^
||ads.example.com^$third-party
/banner/*
`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(testList))
	require.NoError(t, err)

	assert.Equal(t, 4, s.Len())

	assert.True(t, s.Contains("ads.example.com"))
	assert.True(t, s.Contains("ads.example.com."))
	assert.True(t, s.Contains("ADS.example.COM."))
	assert.True(t, s.Contains("tracker.example.net"))
	assert.True(t, s.Contains("hosts.example.org."))
	assert.True(t, s.Contains("plain.example.com"))

	assert.False(t, s.Contains("example.com"))
	assert.False(t, s.Contains("sub.ads.example.com"))
	assert.False(t, s.Contains("allowed.example.com"))
	assert.False(t, s.Contains(""))

	assert.Equal(t, 6, s.Skipped())
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		name string
		ok   bool
	}{
		{"||ads.example.com^", "ads.example.com", true},
		{"ads.example.com", "ads.example.com", true},
		{"127.0.0.1 ads.example.com # trailing", "ads.example.com", true},
		{"ads.example.com # comment", "ads.example.com", true},
		{"   ", "", false},
		{"# x", "", false},
		{"||", "", false},
		{"||bad!domain^", "", false},
		{"||ads.example.com^$important", "", false},
	}

	for _, tt := range tests {
		name, ok := parseLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.name, name, tt.line)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	require.NoError(t, os.WriteFile(path, []byte(testList), 0600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Contains("ads.example.com"))

	_, err = Load(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.False(t, s.Contains("ads.example.com"))
	assert.Equal(t, 0, s.Len())
}

func TestHolder(t *testing.T) {
	first, err := Parse(strings.NewReader("||one.example.com^\n"))
	require.NoError(t, err)
	second, err := Parse(strings.NewReader("||two.example.com^\n"))
	require.NoError(t, err)

	h := NewHolder(first)
	assert.True(t, h.Contains("one.example.com"))
	assert.Equal(t, 1, h.Len())

	prev := h.Swap(second)
	assert.Same(t, first, prev)
	assert.False(t, h.Contains("one.example.com"))
	assert.True(t, h.Contains("two.example.com"))

	// the old store is untouched by the swap
	assert.True(t, first.Contains("one.example.com"))
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	require.NoError(t, os.WriteFile(path, []byte("||one.example.com^\n"), 0600))

	s, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(s)
	w, err := NewWatcher(path, h)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("||two.example.com^\n"), 0600))

	assert.Eventually(t, func() bool {
		return h.Contains("two.example.com")
	}, 5*time.Second, 20*time.Millisecond)
	assert.False(t, h.Contains("one.example.com"))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherWaitsForWritesToSettle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	require.NoError(t, os.WriteFile(path, []byte("||one.example.com^\n"), 0600))

	s, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(s)
	w, err := NewWatcher(path, h)
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	w.clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// first half of a rewrite in progress
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("||two.example.com^\n")
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	// nothing is read before the file settles
	assert.Same(t, s, h.Current())

	_, err = f.WriteString("||three.example.com^\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// let the trailing write events reach the watcher
	time.Sleep(100 * time.Millisecond)
	assert.Same(t, s, h.Current())

	clock.Advance(settleDelay)

	assert.Eventually(t, func() bool {
		return h.Contains("two.example.com") && h.Contains("three.example.com")
	}, 5*time.Second, 20*time.Millisecond)
	assert.False(t, h.Contains("one.example.com"))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherReloadFailureKeepsStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	require.NoError(t, os.WriteFile(path, []byte("||one.example.com^\n"), 0600))

	s, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(s)
	w, err := NewWatcher(path, h)
	require.NoError(t, err)
	defer w.watcher.Close()

	require.NoError(t, os.Remove(path))

	assert.False(t, w.Reload())
	assert.Same(t, s, h.Current())
	assert.True(t, h.Contains("one.example.com"))
}
