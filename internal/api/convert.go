package api

// Convertible is implemented by wrapped domain types that have an API representation.
type Convertible[T any] interface {
	// ToAPIType converts a wrapped domain type to an API-safe type.
	// It is responsible for any normalization required at the API boundary.
	ToAPIType() (T, error)
}

// convertAll converts each wrapped item in order, stopping at the first error.
func convertAll[T any, C Convertible[T]](items []C) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := item.ToAPIType()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}
