package models

// CommunityResource is a food bank, clinic, shelter or similar service.
type CommunityResource struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Address  string `json:"address"`
	Phone    string `json:"phone,omitempty"`
	URL      string `json:"url,omitempty"`
}
