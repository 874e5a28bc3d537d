package pipeline

import (
	"sort"

	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// ContextDelta records the context mutations observed during one node
// execution, split by whether the key pre-existed.
type ContextDelta struct {
	ReadKeys       []string
	CreatedKeys    []string
	UpdatedKeys    []string
	SuppressedKeys []string

	// RejectedKeys are keys the processor attempted to touch outside its
	// declared sets. The write never reached the context; the postcondition
	// check reports them.
	RejectedKeys []string
}

// ValidatingContextObserver mediates all context writes and deletions for a
// single node. Every mutation is checked against the processor's declared
// created/suppressed key sets and recorded for the post-execution delta.
// Observers are created per node and detached once the node completes; a
// detached observer rejects further mutations.
type ValidatingContextObserver struct {
	target     *ContextStore
	created    map[string]struct{}
	suppressed map[string]struct{}
	delta      ContextDelta
	active     bool
}

// NewValidatingContextObserver binds an observer to the active context and
// the processor's declared key sets.
func NewValidatingContextObserver(target *ContextStore, createdKeys, suppressedKeys []string) *ValidatingContextObserver {
	o := &ValidatingContextObserver{
		target:     target,
		created:    make(map[string]struct{}, len(createdKeys)),
		suppressed: make(map[string]struct{}, len(suppressedKeys)),
		active:     true,
	}
	for _, k := range createdKeys {
		o.created[k] = struct{}{}
	}
	for _, k := range suppressedKeys {
		o.suppressed[k] = struct{}{}
	}
	return o
}

// NotifyUpdate applies a write to the active context. The key must be in
// the declared created set; whether the delta records it as created or
// updated depends on pre-existence.
func (o *ValidatingContextObserver) NotifyUpdate(key string, value any) error {
	if o == nil || !o.active {
		return semerrors.NewObserverError("update", key)
	}
	if _, ok := o.created[key]; !ok {
		o.delta.RejectedKeys = appendOnce(o.delta.RejectedKeys, key)
		return semerrors.NewContextKeyError(key, setToSlice(o.created))
	}

	if o.target.Has(key) {
		o.delta.UpdatedKeys = appendOnce(o.delta.UpdatedKeys, key)
	} else {
		o.delta.CreatedKeys = appendOnce(o.delta.CreatedKeys, key)
	}
	o.target.Set(key, value)
	return nil
}

// NotifyDelete removes a key from the active context. The key must be in
// the declared suppressed set.
func (o *ValidatingContextObserver) NotifyDelete(key string) error {
	if o == nil || !o.active {
		return semerrors.NewObserverError("delete", key)
	}
	if _, ok := o.suppressed[key]; !ok {
		o.delta.RejectedKeys = appendOnce(o.delta.RejectedKeys, key)
		return semerrors.NewSuppressedKeyError(key, setToSlice(o.suppressed))
	}

	o.target.Delete(key)
	o.delta.SuppressedKeys = appendOnce(o.delta.SuppressedKeys, key)
	return nil
}

// RecordRead notes a key the runtime resolved from context on the node's
// behalf. Reads are not validated, only recorded.
func (o *ValidatingContextObserver) RecordRead(key string) {
	if o == nil {
		return
	}
	o.delta.ReadKeys = appendOnce(o.delta.ReadKeys, key)
}

// Delta returns the mutations recorded so far.
func (o *ValidatingContextObserver) Delta() ContextDelta {
	return o.delta
}

// Detach deactivates the observer. Mutations after detachment fail with an
// observer error.
func (o *ValidatingContextObserver) Detach() {
	if o != nil {
		o.active = false
	}
}

// DeclaredCreated returns the declared created key set.
func (o *ValidatingContextObserver) DeclaredCreated() []string {
	return setToSlice(o.created)
}

func appendOnce(list []string, key string) []string {
	for _, k := range list {
		if k == key {
			return list
		}
	}
	return append(list, key)
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
