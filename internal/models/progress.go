package models

// Progress maps document filenames of one course to true once visited
type Progress map[string]bool

// Clone returns a copy that can be modified without touching p
func (p Progress) Clone() Progress {
	out := make(Progress, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ProgressSummary is one course's entry in /api/user-progress
type ProgressSummary struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// LikedCourses maps course ids to true for courses the client has liked
type LikedCourses map[string]bool
