package workflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanctl/internal/app/lock"
	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/internal/app/settle"
	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/policy"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/logger"
)

// fakePlatform is an in-memory platform. Newly created resources stay
// invisible to listings while hideNew is set.
type fakePlatform struct {
	mu sync.Mutex

	nextID      int
	assetLists  []assetlist.AssetList
	policies    []policy.Policy
	credentials []credential.Credential
	scans       []scan.Definition
	instances   []scan.Instance
	archives    map[string][]byte

	hidden  map[string]bool
	hideNew bool
	fail    map[string]error
	calls   []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:   100,
		archives: map[string][]byte{},
		hidden:   map[string]bool{},
		fail:     map[string]error{},
		policies: []policy.Policy{
			{ID: "10", Name: "Basic Network Scan"},
			{ID: "11", Name: "Advanced Scan"},
		},
		credentials: []credential.Credential{
			{ID: "7", Name: "Linux SSH root", Type: "ssh"},
			{ID: "8", Name: "Windows domain admin", Type: "windows"},
		},
	}
}

func (f *fakePlatform) record(call string) error {
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakePlatform) id() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *fakePlatform) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakePlatform) ListAssetLists(context.Context) ([]assetlist.AssetList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListAssetLists"); err != nil {
		return nil, err
	}
	var out []assetlist.AssetList
	for _, a := range f.assetLists {
		if !f.hidden[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakePlatform) CreateAssetList(_ context.Context, a *assetlist.AssetList) (*assetlist.AssetList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateAssetList"); err != nil {
		return nil, err
	}
	created := *a
	created.ID = f.id()
	f.assetLists = append(f.assetLists, created)
	f.hidden[created.ID] = f.hideNew
	return &created, nil
}

func (f *fakePlatform) DeleteAssetList(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteAssetList"); err != nil {
		return err
	}
	for i, a := range f.assetLists {
		if a.ID == id {
			f.assetLists = append(f.assetLists[:i], f.assetLists[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("asset %s not found", id)
}

func (f *fakePlatform) ListPolicies(context.Context) ([]policy.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListPolicies"); err != nil {
		return nil, err
	}
	return f.policies, nil
}

func (f *fakePlatform) ListCredentials(context.Context) ([]credential.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCredentials"); err != nil {
		return nil, err
	}
	return f.credentials, nil
}

func (f *fakePlatform) ListScans(context.Context) ([]scan.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListScans"); err != nil {
		return nil, err
	}
	var out []scan.Definition
	for _, d := range f.scans {
		if !f.hidden[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakePlatform) CreateScan(_ context.Context, d *scan.Definition) (*scan.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateScan"); err != nil {
		return nil, err
	}
	created := *d
	created.ID = f.id()
	created.CreatedAt = time.Now()
	f.scans = append(f.scans, created)
	f.hidden[created.ID] = f.hideNew
	return &created, nil
}

func (f *fakePlatform) LaunchScan(_ context.Context, id string) (*scan.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("LaunchScan"); err != nil {
		return nil, err
	}
	for _, d := range f.scans {
		if d.ID == id {
			inst := scan.Instance{ID: f.id(), Name: d.Name, Status: scan.StatusQueued, StartTime: time.Now()}
			f.instances = append(f.instances, inst)
			return &inst, nil
		}
	}
	return nil, fmt.Errorf("scan %s not found", id)
}

func (f *fakePlatform) ListInstances(_ context.Context, since time.Time) ([]scan.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListInstances"); err != nil {
		return nil, err
	}
	var out []scan.Instance
	for _, i := range f.instances {
		if !i.StartTime.Before(since) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakePlatform) GetInstance(_ context.Context, id string) (*scan.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetInstance"); err != nil {
		return nil, err
	}
	for _, i := range f.instances {
		if i.ID == id {
			inst := i
			return &inst, nil
		}
	}
	return nil, fmt.Errorf("instance %s not found", id)
}

func (f *fakePlatform) ExportInstance(_ context.Context, id string, w io.Writer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ExportInstance"); err != nil {
		return 0, err
	}
	data, ok := f.archives[id]
	if !ok {
		return 0, fmt.Errorf("no archive for %s", id)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// fakeSink records uploads.
type fakeSink struct {
	uploaded []string
	err      error
}

func (s *fakeSink) Upload(_ context.Context, path string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploaded = append(s.uploaded, path)
	return "s3://reports/" + filepath.Base(path), nil
}

// heldLocker refuses every key.
type heldLocker struct{}

func (heldLocker) Acquire(_ context.Context, key string) (lock.Lease, error) {
	return nil, lock.HeldError(key)
}

func fastPoller() *settle.Poller {
	return settle.New(settle.Config{
		Interval:    time.Millisecond,
		MaxInterval: 2 * time.Millisecond,
		MaxAttempts: 3,
		Timeout:     time.Second,
	}, logger.NewNop())
}

func newTestService(p Platform, opts ...ServiceOption) *Service {
	return NewService(p, resolve.New(resolve.AmbiguityWarn, logger.NewNop()), fastPoller(), logger.NewNop(), opts...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
