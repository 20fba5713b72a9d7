package trigger

// Коды клавиш в раскладке виртуальных кодов, которой пользуется источник нажатий.
const (
	KeyReturn uint16 = 36
	KeyDelete uint16 = 51
	KeyEscape uint16 = 53
	KeyF10    uint16 = 109
	// KeyMediaMute — код системной медиа-клавиши «mute».
	KeyMediaMute uint16 = 7
)

// SpecialKey описывает реакцию на специальную клавишу.
type SpecialKey struct {
	Code      uint16
	Threshold int
	Sound     string
	Media     MediaSelector // пустой — без GIF
}

// DefaultSpecialKeys — встроенная таблица специальных клавиш.
func DefaultSpecialKeys() []SpecialKey {
	return []SpecialKey{
		{Code: KeyEscape, Threshold: 4, Sound: "esc"},
		{Code: KeyDelete, Threshold: 4, Sound: "Delete"},
		{Code: KeyReturn, Threshold: 4, Sound: "Enter"},
		{Code: KeyF10, Threshold: 1, Sound: "mute", Media: Named(fallbackBlockGlitchMedia)},
		{Code: KeyMediaMute, Threshold: 1, Sound: "mute", Media: Named(fallbackBlockGlitchMedia)},
	}
}

// specialCounter — счётчик нажатий одной клавиши.
type specialCounter struct {
	count     int
	threshold int
}

// press увеличивает счётчик и сообщает, достигнут ли порог; при срабатывании счётчик сбрасывается.
func (c *specialCounter) press() bool {
	c.count++
	if c.count < max(1, c.threshold) {
		return false
	}
	c.count = 0
	return true
}
