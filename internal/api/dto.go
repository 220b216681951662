package api

// CreateContentRequest is the POST /api/content payload.
type CreateContentRequest struct {
	Content string   `json:"content"`
	Title   string   `json:"title,omitempty"`
	Style   []string `json:"style,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Authors []string `json:"authors,omitempty"`
}

// CreateContentResponse reports the new node id and its index status.
type CreateContentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StatsResponse summarizes the library.
type StatsResponse struct {
	Content int `json:"content"`
	Indexed int `json:"indexed"`
}
