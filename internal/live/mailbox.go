package live

// Mailbox хранит последний непрочитанный снимок: новое значение вытесняет старое.
// Рассчитан на одного отправителя, что соответствует последовательной доставке Hub.
type Mailbox[T any] struct {
	ch chan T
}

// NewMailbox создаёт почтовый ящик на одно значение.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// Put кладёт значение, вытесняя недоставленное предыдущее.
func (m *Mailbox[T]) Put(v T) {
	for {
		select {
		case m.ch <- v:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

// C возвращает канал для чтения значений.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}
