package model

import "time"

// Interaction is one recorded (Query, Response) pair.
type Interaction struct {
	Query    Query
	Response Response
	Seq      int
}

// Stats are the running counters of a session.
type Stats struct {
	FirstQueryAt time.Time
	LastQueryAt  time.Time
	City         City
	Total        int
	Accepted     int
	Answered     int
	Refused      int
}

// RefusalRate is Refused/Total, or 0 for an empty session.
func (s Stats) RefusalRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Refused) / float64(s.Total)
}

// Record folds one interaction into the counters.
func (s *Stats) Record(in Interaction) {
	s.Total++
	if in.Query.Accepted() {
		s.Accepted++
	}
	if in.Response.IsRefusal {
		s.Refused++
	} else {
		s.Answered++
	}
	if s.FirstQueryAt.IsZero() {
		s.FirstQueryAt = in.Query.SubmittedAt
	}
	s.LastQueryAt = in.Query.SubmittedAt
}
