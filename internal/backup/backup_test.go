package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/local"
	"agendapastoral/backend/internal/settings"
	"agendapastoral/backend/internal/store"
)

// fakeState plays both Source and Sink so restores are observable.
type fakeState struct {
	bundle Bundle
}

func (f *fakeState) Collect(_ context.Context) (Bundle, error) { return f.bundle, nil }
func (f *fakeState) Apply(_ context.Context, b Bundle) error {
	f.bundle = b
	return nil
}

func newTestStore(t *testing.T, state *fakeState, maxBackups int) (*Store, *clock) {
	t.Helper()
	db, err := local.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close(db) })

	clk := &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	s := NewStore(Config{
		DB:         db,
		Source:     state,
		Sink:       state,
		DeviceID:   "device-1",
		MaxBackups: maxBackups,
		Now:        clk.now,
	})
	require.NoError(t, s.Init(context.Background()))
	return s, clk
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func sampleBundle() Bundle {
	return Bundle{
		Appointments: []domain.Appointment{
			{ID: "a1", Name: "Maria Silva", Phone: "11999990000", Date: "2025-03-10", Status: domain.StatusPending},
		},
		Pastors:  []domain.Pastor{{ID: "p1", Name: "João"}},
		Settings: settings.Defaults(),
	}
}

func TestCreateRestore_RoundTrip(t *testing.T) {
	state := &fakeState{bundle: sampleBundle()}
	s, _ := newTestStore(t, state, 10)
	ctx := context.Background()

	atBackup := state.bundle
	id, err := s.Create(ctx, "user-1")
	require.NoError(t, err)

	// Intervening local mutations must not leak into the snapshot.
	state.bundle.Appointments = nil
	state.bundle.Pastors = append(state.bundle.Pastors, domain.Pastor{ID: "p2", Name: "Carlos"})

	require.NoError(t, s.Restore(ctx, id))
	assert.Equal(t, atBackup, state.bundle)
}

func TestRestore_UnknownID(t *testing.T) {
	s, _ := newTestStore(t, &fakeState{bundle: sampleBundle()}, 10)
	assert.ErrorIs(t, s.Restore(context.Background(), 9999), store.ErrNotFound)
}

func TestList_NewestFirstWithMetadata(t *testing.T) {
	state := &fakeState{bundle: sampleBundle()}
	s, clk := newTestStore(t, state, 10)
	ctx := context.Background()

	first, err := s.Create(ctx, "")
	require.NoError(t, err)
	clk.t = clk.t.Add(time.Minute)
	second, err := s.Create(ctx, "user-2")
	require.NoError(t, err)

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, second, metas[0].ID)
	assert.Equal(t, first, metas[1].ID)
	assert.Equal(t, "device-1", metas[0].DeviceID)
	assert.Equal(t, "user-2", metas[0].UserID)
	assert.Greater(t, metas[0].Size, 0)
}

func TestPruning_KeepsMostRecent(t *testing.T) {
	state := &fakeState{bundle: sampleBundle()}
	s, clk := newTestStore(t, state, 3)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := s.Create(ctx, "")
		require.NoError(t, err)
		ids = append(ids, id)
		clk.t = clk.t.Add(time.Minute)
	}

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, []int64{metas[0].ID, metas[1].ID, metas[2].ID})
}

func TestDelete(t *testing.T) {
	state := &fakeState{bundle: sampleBundle()}
	s, _ := newTestStore(t, state, 10)
	ctx := context.Background()

	id, err := s.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), store.ErrNotFound)
}

func TestExportImport_RoundTrip(t *testing.T) {
	state := &fakeState{bundle: sampleBundle()}
	s, _ := newTestStore(t, state, 10)
	ctx := context.Background()

	id, err := s.Create(ctx, "user-1")
	require.NoError(t, err)

	data, err := s.Export(ctx, id)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	meta := doc["metadata"].(map[string]any)
	assert.IsType(t, float64(0), meta["timestamp"])
	assert.Equal(t, "device-1", meta["deviceId"])

	imported, err := s.Import(ctx, data)
	require.NoError(t, err)
	require.NoError(t, s.Restore(ctx, imported))
	assert.Equal(t, sampleBundle(), state.bundle)
}

func TestImport_RejectsStructurallyInvalidFiles(t *testing.T) {
	s, _ := newTestStore(t, &fakeState{bundle: sampleBundle()}, 10)
	ctx := context.Background()

	cases := map[string]string{
		"not json":           `{{`,
		"appointments shape": `{"metadata":{"timestamp":1,"deviceId":"d"},"appointments":{},"pastors":[],"settings":{}}`,
		"pastors shape":      `{"metadata":{"timestamp":1,"deviceId":"d"},"appointments":[],"pastors":"x","settings":{}}`,
		"settings shape":     `{"metadata":{"timestamp":1,"deviceId":"d"},"appointments":[],"pastors":[],"settings":[]}`,
		"timestamp type":     `{"metadata":{"timestamp":"hoje","deviceId":"d"},"appointments":[],"pastors":[],"settings":{}}`,
		"deviceId type":      `{"metadata":{"timestamp":1,"deviceId":7},"appointments":[],"pastors":[],"settings":{}}`,
	}
	for name, payload := range cases {
		_, err := s.Import(ctx, []byte(payload))
		assert.ErrorIs(t, err, ErrInvalidFile, name)

		metas, lerr := s.List(ctx)
		require.NoError(t, lerr)
		assert.Empty(t, metas, fmt.Sprintf("%s: nothing may be persisted", name))
	}
}
