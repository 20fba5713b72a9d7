//go:build !windows

package keys

import "errors"

func newHookListener() (listener, error) {
	return nil, errors.New("keys: keyboard hook unavailable on this platform")
}
