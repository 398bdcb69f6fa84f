package notifier

// UserProfile is the payload pushed to stream subscribers when a post is
// indexed.
type UserProfile struct {
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
	LastCached int64  `json:"last_cached"`
}

// Queue is the bounded buffer between the indexer and the outbound event
// stream. The indexer must never stall behind a slow subscriber, so a
// full queue drops the profile instead of blocking.
type Queue struct {
	ch chan UserProfile
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 30
	}
	return &Queue{ch: make(chan UserProfile, size)}
}

// TrySend enqueues without blocking; it reports false when the profile
// was dropped because the queue is full.
func (q *Queue) TrySend(p UserProfile) bool {
	select {
	case q.ch <- p:
		return true
	default:
		return false
	}
}

func (q *Queue) C() <-chan UserProfile {
	return q.ch
}
