package keys

// DefaultBufferSize — сколько последних символов хранит буфер.
const DefaultBufferSize = 10

// Buffer — кольцо последних набранных символов.
type Buffer struct {
	size  int
	runes []rune
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{size: size, runes: make([]rune, 0, size)}
}

// Push добавляет символ, вытесняя самый старый, и возвращает новое содержимое.
func (b *Buffer) Push(r rune) string {
	if len(b.runes) == b.size {
		copy(b.runes, b.runes[1:])
		b.runes = b.runes[:b.size-1]
	}
	b.runes = append(b.runes, r)
	return string(b.runes)
}

func (b *Buffer) String() string { return string(b.runes) }

func (b *Buffer) Reset() { b.runes = b.runes[:0] }
