package trigger

import "strings"

// MediaKind — способ выбора медиа (GIF/видео) для всплывающего окна.
type MediaKind int

const (
	MediaNamed MediaKind = iota + 1
	MediaRandom
)

const randomPrefix = "random:"

// MediaSelector — либо конкретный ресурс по имени, либо случайный выбор
// (опционально из указанной папки; пустая папка — группа по умолчанию).
type MediaSelector struct {
	Kind   MediaKind
	Name   string
	Folder string
}

func Named(name string) MediaSelector { return MediaSelector{Kind: MediaNamed, Name: name} }

func Random(folder string) MediaSelector { return MediaSelector{Kind: MediaRandom, Folder: folder} }

// ParseMediaSelector разбирает значение правила: "name" | "random" | "random:folder".
// Пустое значение — false.
func ParseMediaSelector(v string) (MediaSelector, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return MediaSelector{}, false
	}
	lower := strings.ToLower(v)
	switch {
	case lower == "random":
		return Random(""), true
	case strings.HasPrefix(lower, randomPrefix):
		return Random(strings.TrimSpace(v[len(randomPrefix):])), true
	}
	return Named(v), true
}

func (m MediaSelector) IsZero() bool { return m.Kind == 0 }

func (m MediaSelector) String() string {
	switch m.Kind {
	case MediaNamed:
		return m.Name
	case MediaRandom:
		if m.Folder == "" {
			return "random"
		}
		return randomPrefix + m.Folder
	}
	return ""
}

func (m MediaSelector) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText принимает ту же запись, что и ParseMediaSelector; пустая строка даёт нулевой селектор.
func (m *MediaSelector) UnmarshalText(b []byte) error {
	sel, _ := ParseMediaSelector(string(b))
	*m = sel
	return nil
}

// Size — размер всплывающего окна в точках.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}
