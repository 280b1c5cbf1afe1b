package scheduler

// Occupancy is the mutable booking state of one solve: which slots each course and teacher
// already uses, and how many blocks each teacher carries. It is never shared between solves.
type Occupancy struct {
	words   int
	course  [][]uint64
	teacher [][]uint64
	load    []int
}

// NewOccupancy allocates an empty occupancy sized for the index.
func NewOccupancy(ix *Index) *Occupancy {
	words := (len(ix.slots) + 63) / 64
	o := &Occupancy{
		words:   words,
		course:  make([][]uint64, len(ix.courseIDs)),
		teacher: make([][]uint64, len(ix.teacherIDs)),
		load:    make([]int, len(ix.teacherIDs)),
	}
	for i := range o.course {
		o.course[i] = make([]uint64, words)
	}
	for i := range o.teacher {
		o.teacher[i] = make([]uint64, words)
	}
	return o
}

func testBit(bits []uint64, pos int) bool {
	return bits[pos/64]&(1<<(uint(pos)%64)) != 0
}

func setBit(bits []uint64, pos int) {
	bits[pos/64] |= 1 << (uint(pos) % 64)
}

func clearBit(bits []uint64, pos int) {
	bits[pos/64] &^= 1 << (uint(pos) % 64)
}

func (o *Occupancy) courseBusy(course, slot int) bool {
	return testBit(o.course[course], slot)
}

func (o *Occupancy) teacherBusy(teacher, slot int) bool {
	return testBit(o.teacher[teacher], slot)
}

func (o *Occupancy) place(course, teacher, slot int) {
	setBit(o.course[course], slot)
	setBit(o.teacher[teacher], slot)
	o.load[teacher]++
}

func (o *Occupancy) release(course, teacher, slot int) {
	clearBit(o.course[course], slot)
	clearBit(o.teacher[teacher], slot)
	o.load[teacher]--
}
