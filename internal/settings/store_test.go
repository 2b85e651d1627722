package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *Memory) {
	t.Helper()
	mem := NewMemory()
	s, err := NewStore(context.Background(), mem, nil)
	require.NoError(t, err)
	return s, mem
}

func TestUpdate_DeepMergePreservesSiblings(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 60},
	})
	require.NoError(t, err)

	got := s.Get()
	assert.Equal(t, 60, got.Appointments.DefaultDuration)
	// Sibling keys at every nesting level survive the partial update.
	assert.Equal(t, Defaults().Appointments.ReminderHours, got.Appointments.ReminderHours)
	assert.Equal(t, Defaults().Backup, got.Backup)
	assert.Equal(t, Defaults().Display, got.Display)
}

func TestUpdate_InvalidValueBlocksWholeUpdate(t *testing.T) {
	s, mem := newTestStore(t)
	before := s.Get()
	rawBefore, _, err := mem.Get(context.Background(), storageKey)
	require.NoError(t, err)

	uerr := s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 5},
	})
	var verr *ValidationError
	require.ErrorAs(t, uerr, &verr)
	require.NotEmpty(t, verr.Fields)
	assert.Contains(t, verr.Fields[0].Field, "DefaultDuration")

	assert.Equal(t, before, s.Get())
	rawAfter, _, err := mem.Get(context.Background(), storageKey)
	require.NoError(t, err)
	assert.Equal(t, rawBefore, rawAfter, "persisted settings must stay byte-for-byte unchanged")
}

func TestUpdate_ListsEveryViolatedField(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 9999},
		"backup":       map[string]any{"maxBackups": 0},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestUpdate_PersistenceFailureLeavesMemoryUnchanged(t *testing.T) {
	s, mem := newTestStore(t)
	before := s.Get()

	mem.FailSet = errors.New("quota exceeded")
	err := s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 45},
	})
	require.Error(t, err)
	assert.Equal(t, before, s.Get())
}

func TestListeners_OrderAndIsolation(t *testing.T) {
	s, _ := newTestStore(t)

	var order []string
	s.AddListener(func(Settings) { order = append(order, "first") })
	s.AddListener(func(Settings) {
		order = append(order, "second")
		panic("listener bug")
	})
	s.AddListener(func(v Settings) {
		order = append(order, "third")
		assert.Equal(t, 45, v.Appointments.DefaultDuration)
	})

	err := s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 45},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestListeners_Unsubscribe(t *testing.T) {
	s, _ := newTestStore(t)

	calls := 0
	cancel := s.AddListener(func(Settings) { calls++ })

	require.NoError(t, s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 45},
	}))
	cancel()
	require.NoError(t, s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 60},
	}))

	assert.Equal(t, 1, calls)
}

func TestReset_SingleCategory(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Update(context.Background(), map[string]any{
		"appointments": map[string]any{"defaultDuration": 120},
		"backup":       map[string]any{"maxBackups": 3},
	}))

	require.NoError(t, s.Reset(context.Background(), "appointments"))

	got := s.Get()
	assert.Equal(t, Defaults().Appointments, got.Appointments)
	assert.Equal(t, 3, got.Backup.MaxBackups, "other categories keep their values")
}

func TestReset_UnknownCategory(t *testing.T) {
	s, _ := newTestStore(t)
	var verr *ValidationError
	assert.ErrorAs(t, s.Reset(context.Background(), "nonsense"), &verr)
}

func TestExportImport_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Update(context.Background(), map[string]any{
		"display": map[string]any{"theme": "dark"},
	}))

	data, err := s.Export()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, SchemaVersion, doc["schemaVersion"])

	other, _ := newTestStore(t)
	require.NoError(t, other.Import(context.Background(), data))
	assert.Equal(t, s.Get(), other.Get())
}

func TestImport_RejectsGarbageAndNewerSchema(t *testing.T) {
	s, _ := newTestStore(t)

	var verr *ValidationError
	assert.ErrorAs(t, s.Import(context.Background(), []byte("not json")), &verr)

	newer, err := json.Marshal(map[string]any{"schemaVersion": SchemaVersion + 1, "settings": Defaults()})
	require.NoError(t, err)
	assert.ErrorAs(t, s.Import(context.Background(), newer), &verr)
}

func TestNewStore_LoadsPersistedPartialDocument(t *testing.T) {
	mem := NewMemory()
	// An older document missing whole sections must still load.
	require.NoError(t, mem.Set(context.Background(), storageKey,
		`{"appointments":{"defaultDuration":90}}`))

	s, err := NewStore(context.Background(), mem, nil)
	require.NoError(t, err)

	got := s.Get()
	assert.Equal(t, 90, got.Appointments.DefaultDuration)
	assert.Equal(t, Defaults().Backup, got.Backup)
}
