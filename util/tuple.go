package util

type Triple[T any, U any, V any] struct {
	A T
	B U
	C V
}

func MakeTriple[T any, U any, V any](a T, b U, c V) Triple[T, U, V] {
	return Triple[T, U, V]{A: a, B: b, C: c}
}
