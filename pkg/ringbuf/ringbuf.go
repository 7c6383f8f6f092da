package ringbuf

// View — доступ к окну только на чтение.
type View[T any] interface {
	Len() int
	Cap() int
	// At: 0 — самый старый элемент, отрицательный индекс считается с конца.
	At(i int) (T, bool)
	Values() []T
}

// Ring — кольцевой буфер фиксированной ёмкости; при переполнении вытесняет самый старый элемент.
// Не потокобезопасен: владелец один.
type Ring[T any] struct {
	data  []T
	front int
	size  int
}

func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push добавляет элемент и возвращает вытесненный, если буфер был полон.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	capacity := len(r.data)
	if r.size == capacity {
		evicted, ok = r.data[r.front], true
		r.data[r.front] = v
		r.front = (r.front + 1) % capacity
		return evicted, ok
	}
	r.data[(r.front+r.size)%capacity] = v
	r.size++
	return evicted, false
}

func (r *Ring[T]) Len() int { return r.size }
func (r *Ring[T]) Cap() int { return len(r.data) }

func (r *Ring[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 {
		i += r.size
	}
	if i < 0 || i >= r.size {
		return zero, false
	}
	return r.data[(r.front+i)%len(r.data)], true
}

// Values — копия содержимого от старого к новому.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.data[(r.front+i)%len(r.data)]
	}
	return out
}

func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.front, r.size = 0, 0
}
