package api

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// authOnly is the input for operations that take nothing but credentials.
type authOnly struct {
	Authorization string `header:"Authorization"`
}

// authWithID is the input for operations on a single resource by ID.
type authWithID struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Resource identifier"`
}
