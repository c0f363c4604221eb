package usecase

import (
	"strings"
	"sync"

	"ContentPipeline/internal/domain"
)

// PostQueue holds crawled posts between the crawl and generation passes.
// It is bounded, FIFO and keeps at most one post per URL.
type PostQueue struct {
	mu       sync.Mutex
	items    []domain.CrawledPost
	urls     map[string]struct{}
	capacity int
}

func NewPostQueue(capacity int) *PostQueue {
	if capacity <= 0 {
		capacity = 200
	}
	return &PostQueue{urls: map[string]struct{}{}, capacity: capacity}
}

// Offer appends post unless its URL is queued already or the queue is full.
func (q *PostQueue) Offer(post domain.CrawledPost) bool {
	key := strings.TrimSpace(post.URL)
	q.mu.Lock()
	defer q.mu.Unlock()
	if key == "" || len(q.items) >= q.capacity {
		return false
	}
	if _, dup := q.urls[key]; dup {
		return false
	}
	q.urls[key] = struct{}{}
	q.items = append(q.items, post)
	return true
}

// Contains reports whether a post with url is waiting.
func (q *PostQueue) Contains(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.urls[strings.TrimSpace(url)]
	return ok
}

// Pop removes the oldest post.
func (q *PostQueue) Pop() (domain.CrawledPost, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.CrawledPost{}, false
	}
	post := q.items[0]
	q.items[0] = domain.CrawledPost{}
	q.items = q.items[1:]
	delete(q.urls, strings.TrimSpace(post.URL))
	return post, true
}

// Full reports whether Offer would reject any further post.
func (q *PostQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) >= q.capacity
}

func (q *PostQueue) Cap() int { return q.capacity }

func (q *PostQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
