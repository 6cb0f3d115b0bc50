package util

//*******************************************
// list
//*******************************************

type List[T any] []T

func NewList[T any](cap int) List[T] {
	return make([]T, 0, cap)
}

func (self *List[T]) Add(value T) {
	*self = append(*self, value)
}

func (self *List[T]) Get(index int) T {
	return (*self)[index]
}

func (self *List[T]) Set(index int, value T) {
	(*self)[index] = value
}

func (self List[T]) Length() int {
	return len(self)
}
