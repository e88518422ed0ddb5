package console

// Sequence orders the fetches of one poller. Every dispatched fetch gets
// the next number from Issue; Accept admits a response only if it is newer
// than the last one admitted.
type Sequence struct {
	issued  uint64
	applied uint64
}

// Issue reserves the next sequence number.
func (s *Sequence) Issue() uint64 {
	s.issued++
	return s.issued
}

// Accept reports whether a response carrying seq should be applied, and
// records it as the newest applied when it is.
func (s *Sequence) Accept(seq uint64) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}

// Pending reports whether the most recently issued fetch has not answered yet.
func (s *Sequence) Pending() bool {
	return s.issued > s.applied
}

// Issued returns the last issued sequence number.
func (s *Sequence) Issued() uint64 {
	return s.issued
}

// Applied returns the last applied sequence number.
func (s *Sequence) Applied() uint64 {
	return s.applied
}
