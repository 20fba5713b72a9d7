package keys

import "Xtion/internal/trigger"

// Виртуальные коды Windows, у которых есть реакция в таблице специальных клавиш.
const (
	vkBack       = 0x08
	vkReturn     = 0x0D
	vkEscape     = 0x1B
	vkF10        = 0x79
	vkVolumeMute = 0xAD
)

// otherKeyBase сдвигает прочие виртуальные коды, чтобы они не совпадали с кодами специальных клавиш.
const otherKeyBase = 0x100

// translateVK переводит виртуальный код Windows в код, которым оперирует таблица специальных клавиш.
func translateVK(vk uint32) uint16 {
	switch vk {
	case vkEscape:
		return trigger.KeyEscape
	case vkBack:
		return trigger.KeyDelete
	case vkReturn:
		return trigger.KeyReturn
	case vkF10:
		return trigger.KeyF10
	case vkVolumeMute:
		return trigger.KeyMediaMute
	}
	return uint16(otherKeyBase + vk&0xFF)
}
