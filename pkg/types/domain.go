package types

// Post is a blog post as served by the upstream posts API.
type Post struct {
	// example: 1
	ID int `json:"id" example:"1"`
	// example: 1
	UserID int `json:"userId" example:"1"`
	// example: sunt aut facere repellat provident
	Title string `json:"title" example:"sunt aut facere repellat provident"`
	// example: quia et suscipit
	Body string `json:"body" example:"quia et suscipit"`
}
