package article

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusReviewed ReviewStatus = "reviewed"
)

func (s ReviewStatus) Valid() bool {
	return s == ReviewStatusPending || s == ReviewStatusReviewed
}

// CanTransition reports whether a review may move from s to next.
// Staying in the same state is allowed so repeated approval is a no-op.
func (s ReviewStatus) CanTransition(next ReviewStatus) bool {
	switch s {
	case ReviewStatusPending:
		return next.Valid()
	case ReviewStatusReviewed:
		return next == ReviewStatusReviewed
	default:
		return false
	}
}
