package live

import "sync"

// EntryState описывает состояние записи локального представления.
type EntryState int

const (
	// EntryConfirmed: запись пришла в авторитетном снимке.
	EntryConfirmed EntryState = iota
	// EntryPending: запись добавлена локально, сохранение ещё не завершено.
	EntryPending
	// EntrySettled: сохранение подтверждено, запись ждёт появления в снимке.
	EntrySettled
	// EntryFailed: сохранение не удалось, запись остаётся видимой с пометкой.
	EntryFailed
)

// Entry описывает элемент локального представления вместе с его состоянием.
type Entry[T any] struct {
	Key   string
	Item  T
	State EntryState
	Err   error
}

// View хранит локальную копию последнего снимка коллекции и предварительные записи.
type View[T any] struct {
	key func(T) string

	mu        sync.Mutex
	snapshot  []T
	seen      map[string]struct{}
	tentative []*Entry[T]
}

// NewView создаёт представление; key возвращает авторитетный идентификатор элемента.
func NewView[T any](key func(T) string) *View[T] {
	return &View[T]{
		key:  key,
		seen: make(map[string]struct{}),
	}
}

// Apply заменяет подтверждённую часть представления новым снимком и убирает
// предварительные записи, которые в нём появились.
func (v *View[T]) Apply(snapshot []T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.snapshot = append(v.snapshot[:0:0], snapshot...)
	v.seen = make(map[string]struct{}, len(snapshot))
	for _, item := range snapshot {
		v.seen[v.key(item)] = struct{}{}
	}
	v.reconcile()
}

func (v *View[T]) reconcile() {
	kept := v.tentative[:0]
	for _, e := range v.tentative {
		if e.State == EntrySettled {
			if _, ok := v.seen[e.Key]; ok {
				continue
			}
		}
		kept = append(kept, e)
	}
	v.tentative = kept
}

// AddPending добавляет предварительную запись под временным ключом.
func (v *View[T]) AddPending(tempKey string, item T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tentative = append(v.tentative, &Entry[T]{Key: tempKey, Item: item, State: EntryPending})
}

// Confirm отмечает предварительную запись как сохранённую под ключом key.
// Запись исчезает, как только key появится в снимке.
func (v *View[T]) Confirm(tempKey, key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e := v.find(tempKey); e != nil {
		e.Key = key
		e.State = EntrySettled
		e.Err = nil
	}
	v.reconcile()
}

// Fail отмечает предварительную запись как несохранённую.
func (v *View[T]) Fail(tempKey string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e := v.find(tempKey); e != nil {
		e.State = EntryFailed
		e.Err = err
	}
}

// Discard убирает предварительную запись, например после того как пользователь закрыл ошибку.
func (v *View[T]) Discard(tempKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.tentative[:0]
	for _, e := range v.tentative {
		if e.Key != tempKey {
			kept = append(kept, e)
		}
	}
	v.tentative = kept
}

func (v *View[T]) find(key string) *Entry[T] {
	for _, e := range v.tentative {
		if e.Key == key {
			return e
		}
	}
	return nil
}

// Snapshot возвращает копию последнего авторитетного снимка.
func (v *View[T]) Snapshot() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]T{}, v.snapshot...)
}

// Entries возвращает подтверждённые элементы, за которыми следуют предварительные.
func (v *View[T]) Entries() []Entry[T] {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Entry[T], 0, len(v.snapshot)+len(v.tentative))
	for _, item := range v.snapshot {
		out = append(out, Entry[T]{Key: v.key(item), Item: item, State: EntryConfirmed})
	}
	for _, e := range v.tentative {
		out = append(out, *e)
	}
	return out
}

// Count считает элементы авторитетного снимка, удовлетворяющие pred.
func (v *View[T]) Count(pred func(T) bool) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, item := range v.snapshot {
		if pred(item) {
			n++
		}
	}
	return n
}
