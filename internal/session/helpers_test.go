package session

// mapValues はテスト用のメモリ上のValues実装。
type mapValues map[string]any

func (m mapValues) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapValues) Set(key string, value any) {
	m[key] = value
}

func (m mapValues) Remove(key string) {
	delete(m, key)
}
