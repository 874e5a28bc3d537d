package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

func TestObserver_CreateAndUpdateSplit(t *testing.T) {
	store := NewContextStore()
	store.Set("existing", 1)

	obs := NewValidatingContextObserver(store, []string{"existing", "fresh"}, nil)
	require.NoError(t, obs.NotifyUpdate("fresh", 10))
	require.NoError(t, obs.NotifyUpdate("existing", 20))

	delta := obs.Delta()
	require.Equal(t, []string{"fresh"}, delta.CreatedKeys)
	require.Equal(t, []string{"existing"}, delta.UpdatedKeys)

	v, _ := store.Get("existing")
	require.Equal(t, 20, v)
}

func TestObserver_RejectsUndeclaredWrite(t *testing.T) {
	store := NewContextStore()
	obs := NewValidatingContextObserver(store, []string{"allowed"}, nil)

	err := obs.NotifyUpdate("unexpected", 1)
	var keyErr *semerrors.ContextKeyError
	require.ErrorAs(t, err, &keyErr)
	require.Equal(t, "unexpected", keyErr.Key)
	require.False(t, store.Has("unexpected"))
	require.Equal(t, []string{"unexpected"}, obs.Delta().RejectedKeys)
}

func TestObserver_DeleteDiscipline(t *testing.T) {
	store := NewContextStore()
	store.Set("obsolete", 1)
	store.Set("kept", 2)

	obs := NewValidatingContextObserver(store, nil, []string{"obsolete"})
	require.NoError(t, obs.NotifyDelete("obsolete"))
	require.False(t, store.Has("obsolete"))
	require.Equal(t, []string{"obsolete"}, obs.Delta().SuppressedKeys)

	err := obs.NotifyDelete("kept")
	var supErr *semerrors.SuppressedKeyError
	require.ErrorAs(t, err, &supErr)
	require.True(t, store.Has("kept"))
}

func TestObserver_DetachedObserverRejectsMutations(t *testing.T) {
	store := NewContextStore()
	obs := NewValidatingContextObserver(store, []string{"k"}, []string{"k"})
	obs.Detach()

	var obsErr *semerrors.ObserverError
	require.ErrorAs(t, obs.NotifyUpdate("k", 1), &obsErr)
	require.ErrorAs(t, obs.NotifyDelete("k"), &obsErr)
}

func TestObserver_RecordRead(t *testing.T) {
	obs := NewValidatingContextObserver(NewContextStore(), nil, nil)
	obs.RecordRead("lr")
	obs.RecordRead("lr")
	require.Equal(t, []string{"lr"}, obs.Delta().ReadKeys)
}

func TestKeySetsDisjoint(t *testing.T) {
	require.False(t, disjoint([]string{"a", "b"}, []string{"b"}))
	require.True(t, disjoint([]string{"a"}, []string{"b"}))
}

// disjoint adapts KeySetsDisjoint for table-free assertions.
func disjoint(created, suppressed []string) bool {
	return KeySetsDisjoint(fakeDecl{created: created, suppressed: suppressed})
}

type fakeDecl struct {
	Processor
	created    []string
	suppressed []string
}

func (f fakeDecl) CreatedKeys() []string    { return f.created }
func (f fakeDecl) SuppressedKeys() []string { return f.suppressed }
