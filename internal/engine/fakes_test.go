package engine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/driftbase/syncmw/internal/batch"
	"github.com/driftbase/syncmw/internal/changelog"
	"github.com/driftbase/syncmw/internal/remote"
)

// fakeRemote is a hand-written Client fake, matching the teacher's
// convention of hand-rolled test doubles over a mocking framework.
type fakeRemote struct {
	mu sync.Mutex

	authErr error

	uploaded    map[string][]changelog.Row
	uploadCalls int
	compressed  int

	tableRows     map[string][]changelog.Row
	downloadCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		uploaded:  make(map[string][]changelog.Row),
		tableRows: make(map[string][]changelog.Row),
	}
}

func (f *fakeRemote) Authenticate(ctx context.Context) error { return f.authErr }

func (f *fakeRemote) ExecuteSQL(ctx context.Context, sql string) (*remote.QueryResult, error) {
	return &remote.QueryResult{}, nil
}

func (f *fakeRemote) Upload(ctx context.Context, table string, body []byte, compressed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if compressed {
		f.compressed++
	}

	raw, err := batch.Decompress(body)
	if err != nil {
		return err
	}
	var rows []changelog.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return err
	}

	f.uploaded[table] = append(f.uploaded[table], rows...)
	return nil
}

func (f *fakeRemote) Download(ctx context.Context, table string, sinceTS *int64) ([]changelog.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	return f.tableRows[table], nil
}
