package scheduler

import (
	"math/rand"
	"sort"
)

// Candidate is a (teacher, slot) pair able to host one session of a requirement.
type Candidate struct {
	TeacherID string `json:"teacherId"`
	Slot      Slot   `json:"slot"`
}

type candidate struct {
	teacher int
	slot    int
}

// Index holds, per requirement, the ordered static candidates: qualified teachers crossed with
// their available slots inside the grid. It is built once per solve and only read afterwards.
type Index struct {
	grid  Grid
	slots []Slot

	courseIDs []string
	coursePos map[string]int

	teacherIDs []string
	teacherPos map[string]int
	capacity   []int

	requirements []Requirement
	reqPos       map[reqKey]int
	reqCourse    []int
	candidates   [][]candidate
	qualified    []int
}

type reqKey struct {
	course  string
	subject string
}

// BuildIndex validates the snapshot and precomputes candidates. A non-zero seed permutes each
// candidate list deterministically.
func BuildIndex(snap Snapshot, seed int64) (*Index, error) {
	p, err := validateSnapshot(defaultValidator, snap)
	if err != nil {
		return nil, err
	}
	return newIndex(p, seed), nil
}

func newIndex(p *prepared, seed int64) *Index {
	snap := p.snapshot
	ix := &Index{
		grid:       snap.Grid,
		slots:      snap.Grid.Slots(),
		coursePos:  make(map[string]int, len(snap.Courses)),
		teacherPos: make(map[string]int, len(snap.Teachers)),
		reqPos:     make(map[reqKey]int, len(p.requirements)),
	}
	slotPos := make(map[Slot]int, len(ix.slots))
	for i, slot := range ix.slots {
		slotPos[slot] = i
	}

	for _, course := range snap.Courses {
		ix.coursePos[course.ID] = len(ix.courseIDs)
		ix.courseIDs = append(ix.courseIDs, course.ID)
	}

	teachers := append([]Teacher(nil), snap.Teachers...)
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	bySubject := make(map[string][]int)
	for _, teacher := range teachers {
		pos := len(ix.teacherIDs)
		ix.teacherPos[teacher.ID] = pos
		ix.teacherIDs = append(ix.teacherIDs, teacher.ID)
		ix.capacity = append(ix.capacity, teacher.WeeklyHours)
		seen := make(map[string]bool, len(teacher.SubjectIDs))
		for _, subjectID := range teacher.SubjectIDs {
			if seen[subjectID] {
				continue
			}
			seen[subjectID] = true
			bySubject[subjectID] = append(bySubject[subjectID], pos)
		}
	}

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}

	ix.requirements = p.requirements
	ix.reqCourse = make([]int, len(p.requirements))
	ix.candidates = make([][]candidate, len(p.requirements))
	ix.qualified = make([]int, len(p.requirements))
	for r, req := range p.requirements {
		ix.reqPos[reqKey{course: req.CourseID, subject: req.SubjectID}] = r
		ix.reqCourse[r] = ix.coursePos[req.CourseID]
		qualified := bySubject[req.SubjectID]
		ix.qualified[r] = len(qualified)

		var list []candidate
		for _, t := range qualified {
			for _, slot := range p.availability[ix.teacherIDs[t]] {
				list = append(list, candidate{teacher: t, slot: slotPos[slot]})
			}
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].slot == list[j].slot {
				return list[i].teacher < list[j].teacher
			}
			return list[i].slot < list[j].slot
		})
		if rng != nil {
			rng.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
		}
		ix.candidates[r] = list
	}
	return ix
}

// Requirements returns the derived requirements in search tie-break order.
func (ix *Index) Requirements() []Requirement {
	return append([]Requirement(nil), ix.requirements...)
}

// Grid returns the weekly grid the index was built for.
func (ix *Index) Grid() Grid {
	return ix.grid
}

// StaticCandidates returns every (teacher, slot) pair for the requirement ignoring occupancy.
func (ix *Index) StaticCandidates(req Requirement) []Candidate {
	r, ok := ix.reqPos[reqKey{course: req.CourseID, subject: req.SubjectID}]
	if !ok {
		return nil
	}
	return ix.export(r, ix.candidates[r])
}

// CandidatesFor returns the candidates still usable under the given occupancy, in index order.
// An empty result means no further session of the requirement can be placed.
func (ix *Index) CandidatesFor(req Requirement, occ *Occupancy) []Candidate {
	r, ok := ix.reqPos[reqKey{course: req.CourseID, subject: req.SubjectID}]
	if !ok {
		return nil
	}
	live := make([]candidate, 0, len(ix.candidates[r]))
	for _, c := range ix.candidates[r] {
		if ix.usable(r, c, occ) {
			live = append(live, c)
		}
	}
	return ix.export(r, live)
}

func (ix *Index) export(r int, list []candidate) []Candidate {
	out := make([]Candidate, 0, len(list))
	for _, c := range list {
		out = append(out, Candidate{TeacherID: ix.teacherIDs[c.teacher], Slot: ix.slots[c.slot]})
	}
	return out
}

func (ix *Index) usable(r int, c candidate, occ *Occupancy) bool {
	if occ == nil {
		return true
	}
	if occ.courseBusy(ix.reqCourse[r], c.slot) || occ.teacherBusy(c.teacher, c.slot) {
		return false
	}
	return occ.load[c.teacher] < ix.capacity[c.teacher]
}

// liveFrom appends to dst the positions (into the static list) of usable candidates after position from.
func (ix *Index) liveFrom(dst []int, r, from int, occ *Occupancy) []int {
	for pos := from + 1; pos < len(ix.candidates[r]); pos++ {
		if ix.usable(r, ix.candidates[r][pos], occ) {
			dst = append(dst, pos)
		}
	}
	return dst
}

// countLiveFrom counts usable candidates after position from, stopping once limit is reached.
func (ix *Index) countLiveFrom(r, from, limit int, occ *Occupancy) int {
	n := 0
	for pos := from + 1; pos < len(ix.candidates[r]); pos++ {
		if ix.usable(r, ix.candidates[r][pos], occ) {
			n++
			if limit > 0 && n >= limit {
				return n
			}
		}
	}
	return n
}
