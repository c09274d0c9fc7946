package models

// FilterOption представляет один пункт выпадающего списка сортировки
// или фильтрации. Ключи определяются сервером и для клиента непрозрачны.
type FilterOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// OfferFilter описывает доступные варианты сортировки и фильтрации
// списка предложений. Чисто описательная структура без бизнес-логики.
type OfferFilter struct {
	SortOptions   []FilterOption `json:"sort_options"`
	FilterOptions []FilterOption `json:"filter_options"`
}
