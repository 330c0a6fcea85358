package domain

// Page is one cursor-addressed slice of the image list.
// An empty NextCursor marks the end of the stream.
type Page struct {
	Items      []Item
	NextCursor string
}

// HasNext reports whether another page can be requested after this one.
func (p *Page) HasNext() bool {
	return p != nil && p.NextCursor != ""
}

// CacheStatus is the lifecycle state of a page cache.
type CacheStatus string

const (
	CacheStatusIdle          CacheStatus = "idle"
	CacheStatusFetchingFirst CacheStatus = "fetching-first"
	CacheStatusFetchingNext  CacheStatus = "fetching-next"
	CacheStatusError         CacheStatus = "error"
)
