package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	reqs chan session.Request
}

func (f *fakeSubmitter) Submit(r session.Request) (session.Ticket, error) {
	f.reqs <- r
	return session.Ticket{Session: r.Session}, nil
}

func (f *fakeSubmitter) next(t *testing.T) session.Request {
	t.Helper()
	select {
	case r := <-f.reqs:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a submission")
		return session.Request{}
	}
}

func TestPairs_ResubmitsOnChange(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(newPath, []byte("a\n"), 0o644))

	sub := &fakeSubmitter{reqs: make(chan session.Request, 16)}
	w, err := Pairs(sub, []Pair{{Old: oldPath, New: newPath}}, config.DefaultDiff(), 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	first := sub.next(t)
	assert.Equal(t, "a\n", string(first.New.Content))

	require.NoError(t, os.WriteFile(newPath, []byte("a\nb\n"), 0o644))
	second := sub.next(t)
	assert.Equal(t, first.Session, second.Session)
	assert.Equal(t, "a\nb\n", string(second.New.Content))
}

func TestSubmit_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(newPath, []byte("x\n"), 0o644))

	sub := &fakeSubmitter{reqs: make(chan session.Request, 1)}
	_, err := Submit(sub, Pair{Old: filepath.Join(dir, "absent"), New: newPath}, config.DefaultDiff())
	require.NoError(t, err)
	r := sub.next(t)
	assert.Nil(t, r.Old.Content)
	assert.Equal(t, "x\n", string(r.New.Content))
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	changes := make(chan string, 16)
	w, err := New(100*time.Millisecond, func(p string) { changes <- p }, nil)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddTree(dir))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}
	select {
	case p := <-changes:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case p := <-changes:
		t.Fatalf("burst reported twice: %s", p)
	case <-time.After(300 * time.Millisecond):
	}
}
