package scheduler

import (
	"context"
	"math"
)

type placement struct {
	req  int
	cand candidate
}

// frame is one decision on the explicit search stack: the requirement expanded, its live
// candidate positions at expansion time, and the cursor of the next one to try. In relaxed
// mode the option after the last candidate gives up the requirement's remaining units.
type frame struct {
	req     int
	live    []int
	cursor  int
	placed  bool
	dropped int
}

type searchOutcome struct {
	placements      []placement
	remaining       []int
	occ             *Occupancy
	attempts        int
	backtracks      int
	complete        bool
	exhaustive      bool
	budgetExhausted bool
	cancelled       bool
}

type search struct {
	ix        *Index
	occ       *Occupancy
	active    []int
	remaining []int
	open      int
	chosen    [][]int
	current   []placement
	best      []placement

	// goal is the smallest assignment size a branch must still be able to reach.
	goal    int
	relaxed bool

	budget     int
	attempts   int
	backtracks int
	done       <-chan struct{}

	budgetExhausted bool
	cancelled       bool
}

// runSearch first looks for an assignment that gives every requirement as many units as its
// candidates allow at the root. When none exists it switches to a relaxed branch and bound that
// may give up units, keeping the largest assignment found.
func runSearch(ctx context.Context, ix *Index, pc precheck, budget int) searchOutcome {
	s := &search{
		ix:        ix,
		occ:       NewOccupancy(ix),
		remaining: make([]int, len(ix.requirements)),
		chosen:    make([][]int, len(ix.requirements)),
		budget:    budget,
		done:      ctx.Done(),
	}
	total := 0
	for r, req := range ix.requirements {
		if _, skip := pc.withheld[r]; skip {
			continue
		}
		s.active = append(s.active, r)
		s.remaining[r] = req.Sessions
		total += req.Sessions
	}
	s.open = total
	initial := append([]int(nil), s.remaining...)

	ceiling := s.rootBound()
	s.goal = ceiling
	reached, finished := s.run(ceiling)
	if !reached && finished {
		s.relaxed = true
		s.goal = len(s.best) + 1
		reached, finished = s.run(ceiling - 1)
	}

	out := searchOutcome{
		attempts:        s.attempts,
		backtracks:      s.backtracks,
		exhaustive:      reached || finished,
		budgetExhausted: s.budgetExhausted,
		cancelled:       s.cancelled,
	}
	out.placements, out.occ, out.remaining = s.extend(s.best, initial)
	out.complete = len(out.placements) == total
	return out
}

// rootBound is the number of units the search could place if no two requirements competed:
// every requirement capped by its static candidate count.
func (s *search) rootBound() int {
	bound := 0
	for _, r := range s.active {
		bound += s.ix.countLiveFrom(r, -1, s.remaining[r], s.occ)
	}
	return bound
}

// run explores until the best assignment reaches ceiling. It reports whether the ceiling was
// reached and whether the search ended without being stopped by the budget or cancellation.
func (s *search) run(ceiling int) (reached bool, finished bool) {
	var stack []frame
	for {
		if len(s.best) >= ceiling {
			return true, true
		}
		if r, live, ok := s.next(); ok {
			stack = append(stack, frame{req: r, live: live})
		}
		if !s.advance(&stack) {
			return len(s.best) >= ceiling, !s.budgetExhausted && !s.cancelled
		}
	}
}

// next picks the most constrained requirement that still has a live candidate. ok is false at a
// leaf, or when the placed units plus every requirement's remaining room fall short of goal.
func (s *search) next() (int, []int, bool) {
	bestReq := -1
	bestLive := math.MaxInt
	bound := len(s.current) + s.open
	for _, r := range s.active {
		need := s.remaining[r]
		if need == 0 {
			continue
		}
		limit := bestLive
		if need > limit {
			limit = need
		}
		n := s.ix.countLiveFrom(r, s.lastChosen(r), limit, s.occ)
		if n < need {
			bound -= need - n
			if bound < s.goal {
				return -1, nil, false
			}
		}
		if n > 0 && n < bestLive {
			bestReq, bestLive = r, n
		}
	}
	if bestReq < 0 || bound < s.goal {
		return -1, nil, false
	}
	return bestReq, s.ix.liveFrom(make([]int, 0, bestLive), bestReq, s.lastChosen(bestReq), s.occ), true
}

// advance moves the search to its next trial: it undoes the top frame's current choice and
// takes that frame's next option, popping exhausted frames. It returns false when the stack
// empties or the search must stop.
func (s *search) advance(stack *[]frame) bool {
	for len(*stack) > 0 {
		top := &(*stack)[len(*stack)-1]
		if top.placed {
			s.undo(top.req)
			top.placed = false
		}
		if top.dropped > 0 {
			s.restore(top.req, top.dropped)
			top.dropped = 0
		}
		options := len(top.live)
		if s.relaxed {
			options++
		}
		if top.cursor >= options {
			*stack = (*stack)[:len(*stack)-1]
			s.backtracks++
			continue
		}
		if s.stop() {
			return false
		}
		s.attempts++
		if top.cursor < len(top.live) {
			s.do(top.req, top.live[top.cursor])
			top.placed = true
		} else {
			top.dropped = s.drop(top.req)
		}
		top.cursor++
		if len(s.current) > len(s.best) {
			s.best = append(s.best[:0], s.current...)
			if s.relaxed {
				s.goal = len(s.best) + 1
			}
		}
		return true
	}
	return false
}

func (s *search) stop() bool {
	select {
	case <-s.done:
		s.cancelled = true
		return true
	default:
	}
	if s.budget > 0 && s.attempts >= s.budget {
		s.budgetExhausted = true
		return true
	}
	return false
}

func (s *search) lastChosen(r int) int {
	if n := len(s.chosen[r]); n > 0 {
		return s.chosen[r][n-1]
	}
	return -1
}

func (s *search) do(r, pos int) {
	c := s.ix.candidates[r][pos]
	s.occ.place(s.ix.reqCourse[r], c.teacher, c.slot)
	s.chosen[r] = append(s.chosen[r], pos)
	s.remaining[r]--
	s.open--
	s.current = append(s.current, placement{req: r, cand: c})
}

func (s *search) undo(r int) {
	n := len(s.chosen[r])
	pos := s.chosen[r][n-1]
	s.chosen[r] = s.chosen[r][:n-1]
	c := s.ix.candidates[r][pos]
	s.occ.release(s.ix.reqCourse[r], c.teacher, c.slot)
	s.remaining[r]++
	s.open++
	s.current = s.current[:len(s.current)-1]
}

// drop gives up every remaining unit of r and returns how many were dropped.
func (s *search) drop(r int) int {
	n := s.remaining[r]
	s.remaining[r] = 0
	s.open -= n
	return n
}

func (s *search) restore(r, n int) {
	s.remaining[r] += n
	s.open += n
}

// extend replays the best partial assignment on a fresh occupancy and greedily places any
// unit that still has a usable candidate, most constrained first.
func (s *search) extend(best []placement, initial []int) ([]placement, *Occupancy, []int) {
	occ := NewOccupancy(s.ix)
	remaining := append([]int(nil), initial...)
	placements := append([]placement(nil), best...)
	for _, p := range placements {
		occ.place(s.ix.reqCourse[p.req], p.cand.teacher, p.cand.slot)
		remaining[p.req]--
	}

	for {
		bestReq, bestLive := -1, math.MaxInt
		for _, r := range s.active {
			if remaining[r] == 0 {
				continue
			}
			n := s.ix.countLiveFrom(r, -1, bestLive, occ)
			if n > 0 && n < bestLive {
				bestReq, bestLive = r, n
			}
		}
		if bestReq < 0 {
			break
		}
		live := s.ix.liveFrom(nil, bestReq, -1, occ)
		c := s.ix.candidates[bestReq][live[0]]
		occ.place(s.ix.reqCourse[bestReq], c.teacher, c.slot)
		remaining[bestReq]--
		placements = append(placements, placement{req: bestReq, cand: c})
	}
	return placements, occ, remaining
}
