package domain

// NetworkGraph is the undirected co-occurrence graph over a user's active contacts.
type NetworkGraph struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

type NetworkNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Email string `json:"email"`
	Size  int    `json:"size"`
	Color string `json:"color"`
}

// NetworkEdge joins two contacts. Source sorts before Target.
type NetworkEdge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Weight       int      `json:"weight"`
	Label        string   `json:"label"`
	Interactions []string `json:"interactions,omitempty"`
}
