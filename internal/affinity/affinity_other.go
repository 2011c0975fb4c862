//go:build !linux

package affinity

func pinPlatform(int) (int, func() error, error) {
	return -1, nil, ErrNotSupported
}

func threadID() int {
	return 0
}
