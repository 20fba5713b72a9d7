//go:build windows

package keys

import (
	"context"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
)

// Обёртки для функций, которых может не быть в lxn/win
var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	kernel32                = syscall.NewLazyDLL("kernel32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetKeyboardState    = user32.NewProc("GetKeyboardState")
	procToUnicode           = user32.NewProc("ToUnicode")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

const whKeyboardLL = 13

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type hookImpl struct{}

func newHookListener() (listener, error) { return &hookImpl{}, nil }

func (h *hookImpl) run(ctx context.Context, out chan<- stroke) {
	// хук и цикл сообщений должны жить в одном системном потоке
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var hook uintptr
	cb := syscall.NewCallback(func(nCode int32, wParam, lParam uintptr) uintptr {
		if nCode >= 0 {
			kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			s := stroke{Code: translateVK(kb.VkCode), At: time.Now()}
			switch uint32(wParam) {
			case win.WM_KEYDOWN, win.WM_SYSKEYDOWN:
				s.Down = true
				s.Rune = toRune(kb.VkCode, kb.ScanCode)
			case win.WM_KEYUP, win.WM_SYSKEYUP:
			default:
				return callNext(hook, nCode, wParam, lParam)
			}
			select {
			case out <- s:
			default:
			}
		}
		return callNext(hook, nCode, wParam, lParam)
	})

	mod := win.GetModuleHandle(nil)
	hook, _, _ = procSetWindowsHookEx.Call(whKeyboardLL, cb, uintptr(mod), 0)
	if hook == 0 {
		return
	}
	defer procUnhookWindowsHookEx.Call(hook)

	tid, _, _ := procGetCurrentThreadId.Call()
	go func() {
		<-ctx.Done()
		procPostThreadMessage.Call(tid, uintptr(win.WM_QUIT), 0, 0)
	}()

	// Цикл сообщений до отмены контекста
	msg := new(win.MSG)
	for {
		r := win.GetMessage(msg, 0, 0, 0)
		if r == 0 || r == -1 { // WM_QUIT или ошибка
			return
		}
		win.TranslateMessage(msg)
		win.DispatchMessage(msg)
	}
}

func callNext(hook uintptr, nCode int32, wParam, lParam uintptr) uintptr {
	r, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return r
}

// toRune переводит нажатие в символ с учётом текущей раскладки и модификаторов.
func toRune(vk, scan uint32) rune {
	var state [256]byte
	if r, _, _ := procGetKeyboardState.Call(uintptr(unsafe.Pointer(&state[0]))); r == 0 {
		return 0
	}
	var buf [4]uint16
	n, _, _ := procToUnicode.Call(
		uintptr(vk), uintptr(scan),
		uintptr(unsafe.Pointer(&state[0])),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)),
		0,
	)
	if int32(n) <= 0 {
		return 0
	}
	rs := []rune(syscall.UTF16ToString(buf[:n]))
	if len(rs) == 0 {
		return 0
	}
	return rs[0]
}
