package disk

// Memory is a Device backed by a byte slice, useful for tests and scratch
// stores.
type Memory struct {
	data []byte
}

// NewMemory returns a zeroed Memory device with n blocks. n must be larger
// than the two reserved blocks and at most MaxBlocks.
func NewMemory(n int) (*Memory, error) {
	if err := validBlocks(n); err != nil {
		return nil, err
	}
	return &Memory{data: make([]byte, n*BlockSize)}, nil
}

func (m *Memory) NumBlocks() int { return len(m.data) / BlockSize }

func (m *Memory) ReadBlock(idx uint16, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	off := int(idx) * BlockSize
	copy(buf, m.data[off:off+BlockSize])
	return nil
}

func (m *Memory) WriteBlock(idx uint16, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	off := int(idx) * BlockSize
	copy(m.data[off:off+BlockSize], buf)
	return nil
}
