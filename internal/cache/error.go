package cache

type constError string

func (e constError) Error() string { return string(e) }

// ErrInvalidCapacity は容量に 0 以下を指定したことを表します。
const ErrInvalidCapacity = constError("capacity must be positive")
