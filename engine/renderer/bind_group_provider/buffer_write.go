package bind_group_provider

// BufferWrite describes a pending queue write into the uniform buffer at Binding of Provider.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Flush performs every write through write, skipping writes whose buffer is missing.
//
// Parameters:
//   - writes: the pending writes, applied in order
//   - write: the queue write, usually wgpu.Queue.WriteBuffer bound to the backend's queue
//
// Returns:
//   - int: the number of writes performed
//   - error: the first write error; later writes are skipped
func Flush(writes []BufferWrite, write func(w BufferWrite) error) (int, error) {
	n := 0
	for _, w := range writes {
		if w.Provider == nil || w.Provider.Buffer(w.Binding) == nil {
			continue
		}
		if err := write(w); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
