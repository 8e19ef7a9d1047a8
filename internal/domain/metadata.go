package domain

// Metadata - строковые метаданные чанка
type Metadata map[string]string

// Merge объединяет метаданные документа и секции.
// Ключи overlay имеют приоритет над ключами base. Исходные карты не меняются.
func Merge(base, overlay Metadata) Metadata {
	out := make(Metadata, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Get возвращает значение ключа или fallback
func (m Metadata) Get(key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
